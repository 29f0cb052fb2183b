package analysis

import (
	"strconv"
	"strings"
)

// Missing плейсхолдер для непосчитанных значений.
// Всегда строка, никогда числовой ноль — чтобы downstream не принял
// отсутствие значения за измерение.
const Missing = "N/A"

// Имена фич фиксированы: Trend Aggregator сопоставляет строки между
// сессиями по точному имени.
const (
	FeatFundamentalFreq = "Fundamental Freq (Hz)"
	FeatDuration        = "Audio duration"
	FeatJitterLocal     = "Jitter (local, %)"
	FeatJitterAbs       = "Jitter (abs, ms)"
	FeatShimmerLocal    = "Shimmer (local, %)"
	FeatShimmerDB       = "Shimmer (dB)"
	FeatPitchMean       = "Pitch Mean (Hz)"
	FeatPitchMin        = "Pitch Min (Hz)"
	FeatPitchMax        = "Pitch Max (Hz)"
	FeatPitchRange      = "Pitch Range (Hz)"
	FeatEnergyMean      = "Energy Mean (dB)"
	FeatEnergyMin       = "Energy Min (dB)"
	FeatEnergyMax       = "Energy Max (dB)"
	FeatEnergyRange     = "Energy Range (dB)"
	FeatCPP             = "CPP (dB)"
)

// Feature одно именованное значение. Missing=true означает что вычисление
// не удалось (например нет вокализованных фреймов) — это warning, не ошибка.
type Feature struct {
	Name    string
	Value   float64
	Prec    int // знаков после запятой при форматировании
	Missing bool
}

// FormatValue возвращает значение для CSV/UI: число с фиксированной
// точностью или плейсхолдер
func (f Feature) FormatValue() string {
	if f.Missing {
		return Missing
	}
	return strconv.FormatFloat(f.Value, 'f', f.Prec, 64)
}

// FeatureRecord упорядоченный набор фич одного клипа.
// Порядок стабилен: он определяет порядок строк в features.csv.
type FeatureRecord struct {
	Features []Feature
}

func (r *FeatureRecord) set(name string, value float64, prec int) {
	r.Features = append(r.Features, Feature{Name: name, Value: value, Prec: prec})
}

func (r *FeatureRecord) setMissing(name string) {
	r.Features = append(r.Features, Feature{Name: name, Missing: true})
}

// Get возвращает числовое значение фичи; ok=false если фича отсутствует
// или помечена как Missing
func (r *FeatureRecord) Get(name string) (float64, bool) {
	for _, f := range r.Features {
		if f.Name == name {
			if f.Missing {
				return 0, false
			}
			return f.Value, true
		}
	}
	return 0, false
}

// IsMissing сообщает помечена ли фича плейсхолдером
func (r *FeatureRecord) IsMissing(name string) bool {
	for _, f := range r.Features {
		if f.Name == name {
			return f.Missing
		}
	}
	return false
}

// String отдаёт табличное представление для логов и CLI
func (r *FeatureRecord) String() string {
	var b strings.Builder
	for _, f := range r.Features {
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.FormatValue())
		b.WriteString("\n")
	}
	return b.String()
}
