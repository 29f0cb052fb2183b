package session

import (
	"fmt"

	"voicelab/analysis"
	"voicelab/audio"
	"voicelab/plot"
)

// Analysis результат анализа одного клипа: декодированное аудио,
// фичи с контурами и отрендеренные графики
type Analysis struct {
	Clip   audio.Clip
	Result *analysis.Result
	Plots  map[string][]byte // pitch.png, intensity.png, spectrogram.png
}

// Analyze декодирует клип, извлекает фичи и рендерит графики.
// Ошибка декодирования фатальна, несосчитанные фичи — нет.
func Analyze(raw []byte, p analysis.Profile) (*Analysis, error) {
	clip, err := audio.Decode(raw)
	if err != nil {
		return nil, err
	}

	res := analysis.Extract(clip.Samples, clip.SampleRate, p)
	plots, err := RenderPlots(res)
	if err != nil {
		return nil, err
	}

	return &Analysis{Clip: clip, Result: res, Plots: plots}, nil
}

// RenderPlots рендерит три PNG артефакта отчёта
func RenderPlots(res *analysis.Result) (map[string][]byte, error) {
	pitchPNG, err := plot.PitchPNG(res.Pitch)
	if err != nil {
		return nil, fmt.Errorf("failed to render pitch plot: %w", err)
	}
	intensityPNG, err := plot.IntensityPNG(res.Intensity)
	if err != nil {
		return nil, fmt.Errorf("failed to render intensity plot: %w", err)
	}
	spectrogramPNG, err := plot.SpectrogramPNG(res.Spectrogram)
	if err != nil {
		return nil, fmt.Errorf("failed to render spectrogram: %w", err)
	}
	return map[string][]byte{
		"pitch.png":       pitchPNG,
		"intensity.png":   intensityPNG,
		"spectrogram.png": spectrogramPNG,
	}, nil
}
