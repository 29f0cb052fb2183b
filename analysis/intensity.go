package analysis

import "math"

// Порог слышимости 2e-5 Pa в квадрате — опорный уровень dB SPL
const intensityRef = 4e-10

// IntensityContour контур интенсивности (энергии) в dB.
// Фреймы цифровой тишины не попадают в контур.
type IntensityContour struct {
	Times  []float64
	Values []float64
}

// ComputeIntensity считает фреймовый контур интенсивности.
// Окно 40 мс, шаг берётся из профиля.
func ComputeIntensity(samples []float32, sampleRate int, p Profile) IntensityContour {
	winSamples := int(0.04 * float64(sampleRate))
	hopSamples := int(p.TimeStep * float64(sampleRate))
	if hopSamples < 1 {
		hopSamples = 1
	}
	if winSamples < 2 || len(samples) < winSamples {
		return IntensityContour{}
	}

	var contour IntensityContour
	numFrames := (len(samples)-winSamples)/hopSamples + 1
	for frame := 0; frame < numFrames; frame++ {
		start := frame * hopSamples
		var meansq float64
		for i := 0; i < winSamples; i++ {
			v := float64(samples[start+i])
			meansq += v * v
		}
		meansq /= float64(winSamples)
		if meansq < 1e-12 {
			continue // цифровая тишина, dB не определён
		}
		contour.Times = append(contour.Times, (float64(start)+float64(winSamples)/2)/float64(sampleRate))
		contour.Values = append(contour.Values, 10*math.Log10(meansq/intensityRef))
	}
	return contour
}

// Stats возвращает mean/min/max контура; ok=false для пустого контура
func (c IntensityContour) Stats() (mean, min, max float64, ok bool) {
	if len(c.Values) == 0 {
		return 0, 0, 0, false
	}
	min, max = c.Values[0], c.Values[0]
	for _, v := range c.Values {
		mean += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean /= float64(len(c.Values))
	return mean, min, max, true
}
