package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Параметры CPPS. Потолок анализа фиксирован на 300 Hz независимо от
// профиля — конвенция ADSV, сознательно сохранена.
const (
	cppCeiling       = 300.0  // Hz, верхняя граница поиска пика
	cppTimeStep      = 0.002  // сек, шаг кепстрограммы
	cppWindowSec     = 0.04   // сек, окно кадра
	cppPreEmphasis   = 50.0   // Hz, частота pre-emphasis
	cppTimeSmooth    = 0.02   // сек, окно сглаживания по времени
	cppQuefSmooth    = 0.0005 // сек, окно сглаживания по квефренции
	cppTrendQuefMin  = 0.001  // сек, диапазон тренд-линии
	cppTrendQuefMax  = 0.05
)

// ComputeCPPS считает сглаженную Cepstral Peak Prominence по мощностной
// кепстрограмме. Ошибка вычисления не фатальна: вызывающая сторона
// записывает плейсхолдер.
func ComputeCPPS(samples []float32, sampleRate int, p Profile) (float64, error) {
	winSamples := int(cppWindowSec * float64(sampleRate))
	hopSamples := int(cppTimeStep * float64(sampleRate))
	if winSamples < 4 || hopSamples < 1 || len(samples) < winSamples {
		return 0, fmt.Errorf("clip too short for cepstral analysis")
	}

	// Pre-emphasis от 50 Hz
	pre := make([]float64, len(samples))
	alpha := math.Exp(-2 * math.Pi * cppPreEmphasis / float64(sampleRate))
	pre[0] = float64(samples[0])
	for i := 1; i < len(samples); i++ {
		pre[i] = float64(samples[i]) - alpha*float64(samples[i-1])
	}

	nfft := nextPow2(winSamples)
	specFFT := fourier.NewFFT(nfft)
	numBins := nfft/2 + 1
	cepFFT := fourier.NewFFT(numBins)
	numQuef := numBins/2 + 1
	window := hannWindow(winSamples)

	// Кепстр каждого кадра: FFT -> log power -> FFT -> |.| в dB
	numFrames := (len(pre)-winSamples)/hopSamples + 1
	cepstra := make([][]float64, 0, numFrames)
	frameData := make([]float64, nfft)
	logSpec := make([]float64, numBins)
	for frame := 0; frame < numFrames; frame++ {
		start := frame * hopSamples

		var energy float64
		for i := 0; i < winSamples; i++ {
			v := pre[start+i]
			frameData[i] = v * window[i]
			energy += v * v
		}
		if energy/float64(winSamples) < 1e-12 {
			continue // тишина не даёт кепстрального пика
		}
		for i := winSamples; i < nfft; i++ {
			frameData[i] = 0
		}

		coeffs := specFFT.Coefficients(nil, frameData)
		for k := 0; k < numBins; k++ {
			re := real(coeffs[k])
			im := imag(coeffs[k])
			power := re*re + im*im
			if power < 1e-12 {
				power = 1e-12
			}
			logSpec[k] = 10 * math.Log10(power)
		}

		cc := cepFFT.Coefficients(nil, logSpec)
		cep := make([]float64, numQuef)
		for q := 0; q < numQuef && q < len(cc); q++ {
			cep[q] = 20 * math.Log10(cmplxAbs(cc[q])+1e-12)
		}
		cepstra = append(cepstra, cep)
	}
	if len(cepstra) == 0 {
		return 0, fmt.Errorf("no frames above silence floor")
	}

	// Шаг квефренции: спектр из numBins точек с шагом binHz даёт
	// кепстральные бины через 1/(numBins*binHz) ~ 2/sampleRate
	binHz := float64(sampleRate) / float64(nfft)
	quefStep := 1.0 / (float64(numBins) * binHz)

	// Сглаживание: скользящее среднее по времени и по квефренции
	timeRadius := int(cppTimeSmooth / cppTimeStep / 2)
	quefRadius := int(cppQuefSmooth / quefStep / 2)
	smoothed := smooth2D(cepstra, timeRadius, quefRadius)

	// Диапазон поиска пика: квефренции 1/ceiling .. 1/floor профиля
	qMinPeak := int(1.0 / cppCeiling / quefStep)
	qMaxPeak := int(1.0 / p.PitchFloor / quefStep)
	qTrendMin := int(cppTrendQuefMin / quefStep)
	qTrendMax := int(cppTrendQuefMax / quefStep)
	if qMaxPeak >= numQuef {
		qMaxPeak = numQuef - 1
	}
	if qTrendMax >= numQuef {
		qTrendMax = numQuef - 1
	}
	if qMinPeak < 1 || qMinPeak >= qMaxPeak || qTrendMin >= qTrendMax {
		return 0, fmt.Errorf("invalid quefrency range for sample rate %d", sampleRate)
	}

	// CPP на кадр: пик над линией тренда (линейная регрессия log-кепстра),
	// CPPS — среднее по кадрам
	var sum float64
	var count int
	quefs := make([]float64, 0, qTrendMax-qTrendMin+1)
	vals := make([]float64, 0, qTrendMax-qTrendMin+1)
	for _, cep := range smoothed {
		quefs = quefs[:0]
		vals = vals[:0]
		for q := qTrendMin; q <= qTrendMax; q++ {
			quefs = append(quefs, float64(q)*quefStep)
			vals = append(vals, cep[q])
		}
		intercept, slope := stat.LinearRegression(quefs, vals, nil, false)

		peakQ, peakVal := 0, math.Inf(-1)
		for q := qMinPeak; q <= qMaxPeak; q++ {
			if cep[q] > peakVal {
				peakVal = cep[q]
				peakQ = q
			}
		}
		trend := intercept + slope*float64(peakQ)*quefStep
		sum += peakVal - trend
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("no usable cepstral frames")
	}
	return sum / float64(count), nil
}

// smooth2D скользящее среднее кепстрограммы по времени и квефренции
func smooth2D(data [][]float64, timeRadius, quefRadius int) [][]float64 {
	if timeRadius < 1 && quefRadius < 1 {
		return data
	}
	n := len(data)
	m := len(data[0])
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, m)
		for j := 0; j < m; j++ {
			var sum float64
			var cnt int
			for di := -timeRadius; di <= timeRadius; di++ {
				ii := i + di
				if ii < 0 || ii >= n {
					continue
				}
				for dj := -quefRadius; dj <= quefRadius; dj++ {
					jj := j + dj
					if jj < 0 || jj >= m {
						continue
					}
					sum += data[ii][jj]
					cnt++
				}
			}
			out[i][j] = sum / float64(cnt)
		}
	}
	return out
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
