package trend

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TrendSummary сводная статистика одной фичи по сессиям.
// Change = Last - First. Std выборочное; при одной точке равно 0.
type TrendSummary struct {
	Feature string  `json:"feature"`
	Count   int     `json:"count"`
	First   float64 `json:"first"`
	Last    float64 `json:"last"`
	Change  float64 `json:"change"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summarize считает статистики по каждой фиче таблицы в её порядке.
// Фичи без единого числового значения пропускаются.
func Summarize(t *TrendTable) []TrendSummary {
	summaries := make([]TrendSummary, 0, len(t.Features))
	for _, feature := range t.Features {
		series := t.SeriesFor(feature)
		if len(series) == 0 {
			continue
		}
		s := TrendSummary{
			Feature: feature,
			Count:   len(series),
			First:   series[0],
			Last:    series[len(series)-1],
			Mean:    stat.Mean(series, nil),
			Min:     series[0],
			Max:     series[0],
		}
		s.Change = s.Last - s.First
		if len(series) > 1 {
			s.Std = math.Sqrt(stat.Variance(series, nil))
		}
		for _, v := range series {
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
		}
		summaries = append(summaries, s)
	}
	return summaries
}
