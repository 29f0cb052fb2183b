package analysis

import "log"

// Result полный результат анализа одного клипа: запись фич плюс контуры
// для построения графиков
type Result struct {
	Record      FeatureRecord
	Pitch       PitchContour
	Intensity   IntensityContour
	Spectrogram Spectrogram
}

// Extract прогоняет весь пайплайн извлечения фич для моно клипа.
// Несосчитанные фичи записываются плейсхолдером и не прерывают анализ.
func Extract(samples []float32, sampleRate int, p Profile) *Result {
	res := &Result{
		Pitch:       TrackPitch(samples, sampleRate, p),
		Intensity:   ComputeIntensity(samples, sampleRate, p),
		Spectrogram: ComputeSpectrogram(samples, sampleRate, DefaultSpectrogramConfig()),
	}
	res.Record = summarize(samples, sampleRate, p, res.Pitch, res.Intensity)
	return res
}

// summarize собирает FeatureRecord из контуров.
// Порядок фич фиксирован и совпадает с порядком строк features.csv.
func summarize(samples []float32, sampleRate int, p Profile, pitch PitchContour, intensity IntensityContour) FeatureRecord {
	var rec FeatureRecord

	// Fundamental frequency: медиана вокализованных фреймов
	if f0, ok := MedianF0(pitch); ok {
		rec.set(FeatFundamentalFreq, f0, 2)
	} else {
		rec.setMissing(FeatFundamentalFreq)
	}

	rec.set(FeatDuration, float64(len(samples))/float64(sampleRate), 2)

	// Jitter/Shimmer по point process из питч-трека
	pp := PointProcessFromPitch(samples, sampleRate, pitch)
	pert := ComputePerturbation(samples, sampleRate, pp)
	if pert.OK {
		rec.set(FeatJitterLocal, pert.JitterLocal*100, 2)
		rec.set(FeatJitterAbs, pert.JitterAbs*1000, 3)
		rec.set(FeatShimmerLocal, pert.ShimmerLocal*100, 2)
		rec.set(FeatShimmerDB, pert.ShimmerDB, 2)
	} else {
		rec.setMissing(FeatJitterLocal)
		rec.setMissing(FeatJitterAbs)
		rec.setMissing(FeatShimmerLocal)
		rec.setMissing(FeatShimmerDB)
	}

	// Статистики питч-контура
	voiced := pitch.VoicedFreqs()
	if len(voiced) > 0 {
		var sum float64
		min, max := voiced[0], voiced[0]
		for _, f := range voiced {
			sum += f
			if f < min {
				min = f
			}
			if f > max {
				max = f
			}
		}
		rec.set(FeatPitchMean, sum/float64(len(voiced)), 2)
		rec.set(FeatPitchMin, min, 2)
		rec.set(FeatPitchMax, max, 2)
		rec.set(FeatPitchRange, max-min, 2)
	} else {
		rec.setMissing(FeatPitchMean)
		rec.setMissing(FeatPitchMin)
		rec.setMissing(FeatPitchMax)
		rec.setMissing(FeatPitchRange)
	}

	// Статистики контура интенсивности (энергии)
	if mean, min, max, ok := intensity.Stats(); ok {
		rec.set(FeatEnergyMean, mean, 2)
		rec.set(FeatEnergyMin, min, 2)
		rec.set(FeatEnergyMax, max, 2)
		rec.set(FeatEnergyRange, max-min, 2)
	} else {
		rec.setMissing(FeatEnergyMean)
		rec.setMissing(FeatEnergyMin)
		rec.setMissing(FeatEnergyMax)
		rec.setMissing(FeatEnergyRange)
	}

	// CPP: ошибка вычисления деградирует до плейсхолдера
	if cpp, err := ComputeCPPS(samples, sampleRate, p); err == nil {
		rec.set(FeatCPP, cpp, 2)
	} else {
		log.Printf("CPP computation skipped: %v", err)
		rec.setMissing(FeatCPP)
	}

	return rec
}
