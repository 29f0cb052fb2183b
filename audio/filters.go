package audio

import "math"

// FilterConfig настройки предобработки записи с микрофона.
// Анализ получает клип уже без DC смещения и низкочастотного гула,
// акустические метрики от этого только выигрывают.
type FilterConfig struct {
	HighPassEnabled bool
	HighPassCutoff  float32 // Hz, срез ниже которого гул давится

	DeClickEnabled   bool
	DeClickThreshold float32 // порог скачка амплитуды

	NormalizationEnabled bool
	TargetPeakLevel      float32
}

// DefaultFilterConfig возвращает настройки по умолчанию
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		HighPassEnabled:      true,
		HighPassCutoff:       60, // ниже человеческого голоса
		DeClickEnabled:       true,
		DeClickThreshold:     0.4,
		NormalizationEnabled: true,
		TargetPeakLevel:      0.9,
	}
}

// ApplyFilters прогоняет включённые фильтры, исходные сэмплы не меняются
func ApplyFilters(samples []float32, sampleRate int, cfg FilterConfig) []float32 {
	if len(samples) == 0 {
		return samples
	}
	result := make([]float32, len(samples))
	copy(result, samples)

	if cfg.HighPassEnabled {
		result = highPass(result, sampleRate, cfg.HighPassCutoff)
	}
	if cfg.DeClickEnabled {
		result = deClick(result, cfg.DeClickThreshold)
	}
	if cfg.NormalizationEnabled {
		result = normalizePeak(result, cfg.TargetPeakLevel)
	}
	return result
}

// highPass IIR фильтр первого порядка: убирает DC offset и гул
func highPass(samples []float32, sampleRate int, cutoffHz float32) []float32 {
	if len(samples) == 0 || cutoffHz <= 0 {
		return samples
	}
	rc := 1.0 / (2.0 * math.Pi * float64(cutoffHz))
	dt := 1.0 / float64(sampleRate)
	alpha := float32(rc / (rc + dt))

	result := make([]float32, len(samples))
	result[0] = samples[0]
	prevInput, prevOutput := samples[0], samples[0]
	for i := 1; i < len(samples); i++ {
		result[i] = alpha * (prevOutput + samples[i] - prevInput)
		prevInput = samples[i]
		prevOutput = result[i]
	}
	return result
}

// deClick интерполирует одиночные выбросы: резкий скачок в обе стороны
// от соседей считается щелчком
func deClick(samples []float32, threshold float32) []float32 {
	if len(samples) < 3 {
		return samples
	}
	result := make([]float32, len(samples))
	copy(result, samples)
	for i := 1; i < len(samples)-1; i++ {
		diffPrev := abs32(samples[i] - samples[i-1])
		diffNext := abs32(samples[i] - samples[i+1])
		if diffPrev > threshold && diffNext > threshold {
			result[i] = (samples[i-1] + samples[i+1]) / 2
		}
	}
	return result
}

// normalizePeak подтягивает пик к целевому уровню. Совсем тихий сигнал
// не трогаем — усиление подняло бы только шум.
func normalizePeak(samples []float32, targetPeak float32) []float32 {
	if len(samples) == 0 || targetPeak <= 0 {
		return samples
	}
	var maxAbs float32
	for _, s := range samples {
		if a := abs32(s); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs < 0.001 {
		return samples
	}

	gain := targetPeak / maxAbs
	if gain > 20 {
		gain = 20
	}
	result := make([]float32, len(samples))
	for i, s := range samples {
		v := s * gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		result[i] = v
	}
	return result
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
