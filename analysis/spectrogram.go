package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectrogramConfig конфигурация STFT спектрограммы
type SpectrogramConfig struct {
	WindowSec float64 // длина окна, сек
	HopSec    float64 // шаг, сек
	MaxFreq   float64 // верхняя граница частот, Hz
}

// DefaultSpectrogramConfig параметры спектрограммы отчёта (30 мс / 10 мс / 8 kHz)
func DefaultSpectrogramConfig() SpectrogramConfig {
	return SpectrogramConfig{WindowSec: 0.03, HopSec: 0.01, MaxFreq: 8000}
}

// Spectrogram спектрограмма мощности в dB: Power[frame][bin]
type Spectrogram struct {
	Times []float64
	Freqs []float64
	Power [][]float64 // dB
}

// ComputeSpectrogram считает STFT спектрограмму мощности.
// Окно Ханна, паддинг до степени двойки, бины выше MaxFreq отбрасываются.
func ComputeSpectrogram(samples []float32, sampleRate int, cfg SpectrogramConfig) Spectrogram {
	winSamples := int(cfg.WindowSec * float64(sampleRate))
	hopSamples := int(cfg.HopSec * float64(sampleRate))
	if winSamples < 2 || hopSamples < 1 || len(samples) < winSamples {
		return Spectrogram{}
	}

	nfft := nextPow2(winSamples)
	fft := fourier.NewFFT(nfft)
	window := hannWindow(winSamples)

	binHz := float64(sampleRate) / float64(nfft)
	numBins := int(cfg.MaxFreq/binHz) + 1
	if numBins > nfft/2+1 {
		numBins = nfft/2 + 1
	}

	numFrames := (len(samples)-winSamples)/hopSamples + 1
	sp := Spectrogram{
		Times: make([]float64, numFrames),
		Freqs: make([]float64, numBins),
		Power: make([][]float64, numFrames),
	}
	for k := 0; k < numBins; k++ {
		sp.Freqs[k] = float64(k) * binHz
	}

	frameData := make([]float64, nfft)
	for frame := 0; frame < numFrames; frame++ {
		start := frame * hopSamples
		sp.Times[frame] = (float64(start) + float64(winSamples)/2) / float64(sampleRate)

		for i := 0; i < winSamples; i++ {
			frameData[i] = float64(samples[start+i]) * window[i]
		}
		for i := winSamples; i < nfft; i++ {
			frameData[i] = 0
		}

		coeffs := fft.Coefficients(nil, frameData)
		row := make([]float64, numBins)
		for k := 0; k < numBins; k++ {
			re := real(coeffs[k])
			im := imag(coeffs[k])
			power := re*re + im*im
			// Клампинг перед логарифмом
			if power < 1e-10 {
				power = 1e-10
			}
			row[k] = 10 * math.Log10(power)
		}
		sp.Power[frame] = row
	}

	return sp
}
