// Package review генерирует текстовый разбор акустических измерений
// через Ollama-совместимый LLM, с статистическим фолбэком когда модель
// недоступна.
package review

import (
	"fmt"
	"strings"

	"voicelab/analysis"
	"voicelab/trend"
)

// SerializeRecord сериализует запись фич одного клипа в компактный
// текст для промпта: строка "имя: значение" на фичу
func SerializeRecord(rec analysis.FeatureRecord) string {
	var b strings.Builder
	for _, f := range rec.Features {
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.FormatValue())
		b.WriteString("\n")
	}
	return b.String()
}

// SerializeTrend сериализует тренд в компактный текст: по блоку на фичу
// с рядом значений по сессиям и сводной статистикой
func SerializeTrend(t *trend.TaskTrend) string {
	var b strings.Builder
	b.WriteString("Sessions: ")
	b.WriteString(strings.Join(t.Table.Sessions, ", "))
	b.WriteString("\n\n")

	for _, s := range t.Summaries {
		b.WriteString(s.Feature)
		b.WriteString("\n  values:")
		for _, session := range t.Table.Sessions {
			if v, ok := t.Table.Cell(s.Feature, session); ok {
				fmt.Fprintf(&b, " %s=%.3f", session, v)
			}
		}
		fmt.Fprintf(&b, "\n  n=%d first=%.3f last=%.3f change=%.3f mean=%.3f std=%.3f min=%.3f max=%.3f\n",
			s.Count, s.First, s.Last, s.Change, s.Mean, s.Std, s.Min, s.Max)
	}
	return b.String()
}
