// Package plot рендерит PNG артефакты отчёта: контур основного тона,
// контур интенсивности и спектрограмму.
package plot

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"voicelab/analysis"
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// PitchPNG рисует контур основного тона. Невокализованные фреймы дают
// разрывы линии, как в исходных графиках.
func PitchPNG(pc analysis.PitchContour) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "Pitch contour"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Frequency (Hz)"

	blue := color.RGBA{B: 255, A: 255}

	// Отдельная линия на каждый вокализованный участок
	var seg plotter.XYs
	flush := func() error {
		if len(seg) == 0 {
			return nil
		}
		line, err := plotter.NewLine(seg)
		if err != nil {
			return err
		}
		line.Color = blue
		p.Add(line)
		seg = nil
		return nil
	}
	for i, f := range pc.Freqs {
		if f == 0 {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		seg = append(seg, plotter.XY{X: pc.Times[i], Y: f})
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return renderPNG(p)
}

// IntensityPNG рисует контур интенсивности
func IntensityPNG(ic analysis.IntensityContour) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "Intensity contour"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Intensity (dB)"

	pts := make(plotter.XYs, len(ic.Values))
	for i := range ic.Values {
		pts[i] = plotter.XY{X: ic.Times[i], Y: ic.Values[i]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{G: 160, A: 255}
	p.Add(line)

	return renderPNG(p)
}

// SpectrogramPNG рисует спектрограмму мощности как heatmap
func SpectrogramPNG(sp analysis.Spectrogram) ([]byte, error) {
	if len(sp.Power) == 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}

	p := plot.New()
	p.Title.Text = "Spectrogram"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Frequency (Hz)"

	hm := plotter.NewHeatMap(spectrogramGrid{sp}, palette.Heat(48, 1))
	p.Add(hm)

	return renderPNG(p)
}

// spectrogramGrid адаптер Spectrogram под plotter.GridXYZ
type spectrogramGrid struct {
	sp analysis.Spectrogram
}

func (g spectrogramGrid) Dims() (c, r int) { return len(g.sp.Times), len(g.sp.Freqs) }
func (g spectrogramGrid) Z(c, r int) float64 {
	return g.sp.Power[c][r]
}
func (g spectrogramGrid) X(c int) float64 { return g.sp.Times[c] }
func (g spectrogramGrid) Y(r int) float64 { return g.sp.Freqs[r] }

func renderPNG(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PNG: %w", err)
	}
	return buf.Bytes(), nil
}
