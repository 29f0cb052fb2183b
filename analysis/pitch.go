package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PitchContour контур основного тона. Freqs[i] == 0 означает
// невокализованный фрейм (исключается из статистик).
type PitchContour struct {
	Times    []float64
	Freqs    []float64
	TimeStep float64
}

// VoicedFreqs возвращает частоты только вокализованных фреймов
func (p PitchContour) VoicedFreqs() []float64 {
	voiced := make([]float64, 0, len(p.Freqs))
	for _, f := range p.Freqs {
		if f > 0 {
			voiced = append(voiced, f)
		}
	}
	return voiced
}

// FreqAt возвращает частоту ближайшего фрейма к моменту t (0 = unvoiced)
func (p PitchContour) FreqAt(t float64) float64 {
	if len(p.Times) == 0 || p.TimeStep <= 0 {
		return 0
	}
	idx := int(math.Round((t - p.Times[0]) / p.TimeStep))
	if idx < 0 || idx >= len(p.Freqs) {
		return 0
	}
	return p.Freqs[idx]
}

// TrackPitch оценивает контур основного тона автокорреляционным методом.
// Окно — 3 периода нижней границы профиля, автокорреляция через FFT
// с zero-padding, пик уточняется параболической интерполяцией.
func TrackPitch(samples []float32, sampleRate int, p Profile) PitchContour {
	winSamples := int(3.0 / p.PitchFloor * float64(sampleRate))
	hopSamples := int(p.TimeStep * float64(sampleRate))
	if hopSamples < 1 {
		hopSamples = 1
	}
	if winSamples < 2 || len(samples) < winSamples {
		return PitchContour{TimeStep: p.TimeStep}
	}

	minLag := int(float64(sampleRate) / p.PitchCeiling)
	maxLag := int(float64(sampleRate) / p.PitchFloor)
	if minLag < 2 {
		minLag = 2
	}
	if maxLag >= winSamples {
		maxLag = winSamples - 1
	}

	// Паддинг до степени двойки >= 2*окна, чтобы круговая свёртка
	// не заворачивала корреляцию
	nfft := nextPow2(2 * winSamples)
	fft := fourier.NewFFT(nfft)
	window := hannWindow(winSamples)

	numFrames := (len(samples)-winSamples)/hopSamples + 1
	contour := PitchContour{
		Times:    make([]float64, numFrames),
		Freqs:    make([]float64, numFrames),
		TimeStep: p.TimeStep,
	}

	frameData := make([]float64, nfft)
	for frame := 0; frame < numFrames; frame++ {
		start := frame * hopSamples
		contour.Times[frame] = (float64(start) + float64(winSamples)/2) / float64(sampleRate)

		// DC removal + RMS для детекции тишины
		var mean, energy float64
		for i := 0; i < winSamples; i++ {
			mean += float64(samples[start+i])
		}
		mean /= float64(winSamples)
		for i := 0; i < winSamples; i++ {
			v := float64(samples[start+i]) - mean
			frameData[i] = v * window[i]
			energy += v * v
		}
		for i := winSamples; i < nfft; i++ {
			frameData[i] = 0
		}
		rms := math.Sqrt(energy / float64(winSamples))
		if rms < p.SilenceThreshold {
			continue // unvoiced
		}

		// Автокорреляция = IFFT(|FFT|^2); нормировка сокращается в r[lag]/r[0]
		coeffs := fft.Coefficients(nil, frameData)
		for i := range coeffs {
			re := real(coeffs[i])
			im := imag(coeffs[i])
			coeffs[i] = complex(re*re+im*im, 0)
		}
		ac := fft.Sequence(nil, coeffs)
		if ac[0] <= 0 {
			continue
		}

		bestLag, bestVal := 0, 0.0
		for lag := minLag; lag <= maxLag; lag++ {
			v := ac[lag] / ac[0]
			if v > bestVal {
				bestVal = v
				bestLag = lag
			}
		}
		if bestLag == 0 || bestVal < p.VoicingThreshold {
			continue
		}

		lag := float64(bestLag)
		if bestLag > minLag && bestLag < maxLag {
			lag += parabolicPeakOffset(ac[bestLag-1], ac[bestLag], ac[bestLag+1])
		}

		f0 := float64(sampleRate) / lag
		if f0 >= p.PitchFloor && f0 <= p.PitchCeiling {
			contour.Freqs[frame] = f0
		}
	}

	return contour
}

// MedianF0 медиана вокализованных фреймов; ok=false если вокализованных нет
func MedianF0(p PitchContour) (float64, bool) {
	voiced := p.VoicedFreqs()
	if len(voiced) == 0 {
		return 0, false
	}
	sort.Float64s(voiced)
	mid := len(voiced) / 2
	if len(voiced)%2 == 1 {
		return voiced[mid], true
	}
	return (voiced[mid-1] + voiced[mid]) / 2, true
}

// parabolicPeakOffset смещение вершины параболы через три точки [-1, 1]
func parabolicPeakOffset(left, center, right float64) float64 {
	denom := left - 2*center + right
	if denom == 0 {
		return 0
	}
	offset := 0.5 * (left - right) / denom
	if offset < -1 || offset > 1 {
		return 0
	}
	return offset
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func hannWindow(size int) []float64 {
	window := make([]float64, size)
	for i := 0; i < size; i++ {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}
