package trend

import "sort"

// TrendTable сводная таблица фича x сессия. Features идут в порядке
// первого появления (порядок feature CSV), Sessions отсортированы по
// возрастанию метки. Отсутствующие ячейки просто не присутствуют в Values.
type TrendTable struct {
	Features []string
	Sessions []string
	Values   map[string]map[string]float64 // feature -> session -> value
}

// BuildTable сводит длинные строки в таблицу. Missing-строки
// пропускаются; при дубле (фича, сессия) побеждает первое значение.
func BuildTable(rows []Row) *TrendTable {
	t := &TrendTable{Values: make(map[string]map[string]float64)}
	seenFeature := make(map[string]bool)
	seenSession := make(map[string]bool)

	for _, row := range rows {
		if row.Missing {
			continue
		}
		if !seenFeature[row.Feature] {
			seenFeature[row.Feature] = true
			t.Features = append(t.Features, row.Feature)
		}
		if !seenSession[row.Session] {
			seenSession[row.Session] = true
			t.Sessions = append(t.Sessions, row.Session)
		}
		cells, ok := t.Values[row.Feature]
		if !ok {
			cells = make(map[string]float64)
			t.Values[row.Feature] = cells
		}
		if _, dup := cells[row.Session]; !dup {
			cells[row.Session] = row.Value
		}
	}

	sort.Strings(t.Sessions)
	return t
}

// Cell возвращает значение ячейки (фича, сессия)
func (t *TrendTable) Cell(feature, session string) (float64, bool) {
	cells, ok := t.Values[feature]
	if !ok {
		return 0, false
	}
	v, ok := cells[session]
	return v, ok
}

// SeriesFor возвращает значения фичи по сессиям в хронологическом
// порядке, без пропущенных ячеек
func (t *TrendTable) SeriesFor(feature string) []float64 {
	var series []float64
	for _, s := range t.Sessions {
		if v, ok := t.Cell(feature, s); ok {
			series = append(series, v)
		}
	}
	return series
}
