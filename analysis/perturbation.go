package analysis

import "math"

// Фиксированные параметры perturbation-анализа (floor/ceiling периода,
// допустимые отношения соседних периодов и амплитуд)
const (
	periodFloor       = 0.0001 // сек
	periodCeiling     = 0.02   // сек
	maxPeriodRatio    = 1.3
	maxAmplitudeRatio = 1.6
)

// PointProcess последовательность глоттальных импульсов (времена в секундах)
type PointProcess struct {
	Times []float64
}

// Perturbation результаты jitter/shimmer анализа.
// OK=false когда пригодных периодов меньше трёх — значения не определены.
type Perturbation struct {
	JitterLocal  float64 // относительный jitter (доля, не проценты)
	JitterAbs    float64 // абсолютный jitter, сек
	ShimmerLocal float64 // относительный shimmer (доля)
	ShimmerDB    float64 // shimmer в dB
	OK           bool
}

// PointProcessFromPitch строит периодический point process по питч-контуру:
// внутри вокализованных участков импульсы ставятся на локальные максимумы
// сигнала с шагом ожидаемого периода (кросс-корреляционный метод упрощён
// до пикового поиска в окрестности ожидаемого импульса).
func PointProcessFromPitch(samples []float32, sampleRate int, pc PitchContour) PointProcess {
	var pp PointProcess
	if len(pc.Freqs) == 0 {
		return pp
	}

	sr := float64(sampleRate)
	frame := 0
	for frame < len(pc.Freqs) {
		if pc.Freqs[frame] == 0 {
			frame++
			continue
		}

		// Начало вокализованного участка: первый пик в пределах периода
		t := pc.Times[frame]
		period := 1.0 / pc.Freqs[frame]
		pulse, ok := peakNear(samples, sr, t, t+period)
		if !ok {
			frame++
			continue
		}
		pp.Times = append(pp.Times, pulse)

		// Идём по участку, пока контур остаётся вокализованным
		for {
			f0 := pc.FreqAt(pulse)
			if f0 == 0 {
				break
			}
			period = 1.0 / f0
			next, ok := peakNear(samples, sr, pulse+0.75*period, pulse+1.25*period)
			if !ok || next <= pulse {
				break
			}
			pp.Times = append(pp.Times, next)
			pulse = next
		}

		// Перескакиваем фреймы, пройденные этим участком
		for frame < len(pc.Freqs) && pc.Times[frame] <= pulse {
			frame++
		}
	}

	return pp
}

// peakNear находит время максимума сигнала в интервале [t0, t1]
func peakNear(samples []float32, sampleRate, t0, t1 float64) (float64, bool) {
	i0 := int(t0 * sampleRate)
	i1 := int(t1 * sampleRate)
	if i0 < 0 {
		i0 = 0
	}
	if i1 > len(samples) {
		i1 = len(samples)
	}
	if i0 >= i1 {
		return 0, false
	}

	best := i0
	for i := i0 + 1; i < i1; i++ {
		if samples[i] > samples[best] {
			best = i
		}
	}
	return float64(best) / sampleRate, true
}

// ComputePerturbation считает локальный/абсолютный jitter и
// локальный/dB shimmer по point process
func ComputePerturbation(samples []float32, sampleRate int, pp PointProcess) Perturbation {
	if len(pp.Times) < 4 {
		return Perturbation{}
	}

	// Периоды с фильтрацией по floor/ceiling
	type cycle struct {
		period float64
		amp    float64
	}
	var cycles []cycle
	for i := 1; i < len(pp.Times); i++ {
		T := pp.Times[i] - pp.Times[i-1]
		if T < periodFloor || T > periodCeiling {
			continue
		}
		amp := peakAmplitude(samples, float64(sampleRate), pp.Times[i-1], pp.Times[i])
		cycles = append(cycles, cycle{period: T, amp: amp})
	}
	if len(cycles) < 3 {
		return Perturbation{}
	}

	// Jitter: средняя абсолютная разность соседних периодов,
	// пары с отношением больше maxPeriodRatio исключаются
	var sumDiff, sumPeriod float64
	var nDiff, nPeriod int
	for i := range cycles {
		sumPeriod += cycles[i].period
		nPeriod++
		if i == 0 {
			continue
		}
		ratio := cycles[i].period / cycles[i-1].period
		if ratio > maxPeriodRatio || 1/ratio > maxPeriodRatio {
			continue
		}
		sumDiff += math.Abs(cycles[i].period - cycles[i-1].period)
		nDiff++
	}
	if nDiff == 0 || sumPeriod == 0 {
		return Perturbation{}
	}
	jitterAbs := sumDiff / float64(nDiff)
	meanPeriod := sumPeriod / float64(nPeriod)

	// Shimmer: средняя относительная разность амплитуд соседних циклов,
	// пары с отношением больше maxAmplitudeRatio исключаются
	var sumAmpDiff, sumAmp, sumDB float64
	var nAmpDiff, nAmp int
	for i := range cycles {
		if cycles[i].amp <= 0 {
			continue
		}
		sumAmp += cycles[i].amp
		nAmp++
		if i == 0 || cycles[i-1].amp <= 0 {
			continue
		}
		ratio := cycles[i].amp / cycles[i-1].amp
		if ratio > maxAmplitudeRatio || 1/ratio > maxAmplitudeRatio {
			continue
		}
		sumAmpDiff += math.Abs(cycles[i].amp - cycles[i-1].amp)
		sumDB += math.Abs(20 * math.Log10(ratio))
		nAmpDiff++
	}
	if nAmpDiff == 0 || nAmp == 0 || sumAmp == 0 {
		return Perturbation{}
	}
	meanAmp := sumAmp / float64(nAmp)

	return Perturbation{
		JitterLocal:  jitterAbs / meanPeriod,
		JitterAbs:    jitterAbs,
		ShimmerLocal: (sumAmpDiff / float64(nAmpDiff)) / meanAmp,
		ShimmerDB:    sumDB / float64(nAmpDiff),
		OK:           true,
	}
}

// peakAmplitude пиковая амплитуда |x| внутри одного цикла
func peakAmplitude(samples []float32, sampleRate, t0, t1 float64) float64 {
	i0 := int(t0 * sampleRate)
	i1 := int(t1 * sampleRate)
	if i0 < 0 {
		i0 = 0
	}
	if i1 > len(samples) {
		i1 = len(samples)
	}
	var peak float64
	for i := i0; i < i1; i++ {
		v := math.Abs(float64(samples[i]))
		if v > peak {
			peak = v
		}
	}
	return peak
}
