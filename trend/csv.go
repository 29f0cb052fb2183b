// Package trend строит лонгитюдные отчёты: собирает feature CSV сессий
// одной задачи, сводит их в таблицу фича x сессия и считает сводные
// статистики по каждой фиче.
package trend

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"voicelab/analysis"
)

// FeatureCSVSuffix суффикс датированных feature-файлов задачи
const FeatureCSVSuffix = "_features.csv"

// Row одна строка длинной таблицы: фича, значение, метка сессии.
// Missing=true для плейсхолдерных значений — такие строки не попадают
// в ячейки TrendTable.
type Row struct {
	Feature string
	Value   float64
	Missing bool
	Session string
}

// EncodeFeatureCSV сериализует запись фич в features.csv
// с заголовком Feature,Value
func EncodeFeatureCSV(rec analysis.FeatureRecord) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"Feature", "Value"})
	for _, f := range rec.Features {
		w.Write([]string{f.Name, f.FormatValue()})
	}
	w.Flush()
	return buf.Bytes()
}

// ParseFeatureCSV парсит features.csv, помечая строки меткой сессии.
// Нечисловые значения (плейсхолдеры) дают Missing-строки, а не ошибку.
func ParseFeatureCSV(data []byte, session string) ([]Row, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV")
	}
	if len(records[0]) < 2 || records[0][0] != "Feature" || records[0][1] != "Value" {
		return nil, fmt.Errorf("unexpected header %v", records[0])
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 2 {
			return nil, fmt.Errorf("row %d has %d columns, want 2", i+1, len(rec))
		}
		row := Row{Feature: rec[0], Session: session}
		if v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64); err == nil {
			row.Value = v
		} else {
			row.Missing = true
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// IsFeatureCSV проверяет подходит ли имя файла под конвенцию
// <label>_<task>_features.csv
func IsFeatureCSV(name string) bool {
	return strings.HasSuffix(name, FeatureCSVSuffix) && strings.Contains(name, "_")
}

// SessionLabelFromFilename извлекает метку сессии — подстроку до первого
// подчёркивания (обычно дата YYYY-MM-DD)
func SessionLabelFromFilename(name string) (string, bool) {
	idx := strings.Index(name, "_")
	if idx <= 0 {
		return "", false
	}
	return name[:idx], true
}
