package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func sine(freq float64, seconds float64, rate int) []float32 {
	n := int(seconds * float64(rate))
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.5 * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return samples
}

// EncodeWAV -> Decode должен вернуть тот же клип с точностью до
// квантования PCM16
func TestWAVRoundtrip(t *testing.T) {
	orig := sine(440, 0.5, 16000)
	data := EncodeWAV(orig, 16000)

	clip, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if clip.SampleRate != 16000 {
		t.Errorf("sample rate = %d", clip.SampleRate)
	}
	if len(clip.Samples) != len(orig) {
		t.Fatalf("length = %d, want %d", len(clip.Samples), len(orig))
	}
	for i := range orig {
		if math.Abs(float64(clip.Samples[i]-orig[i])) > 1.0/32768.0*2 {
			t.Fatalf("sample %d: %v != %v", i, clip.Samples[i], orig[i])
		}
	}
	if math.Abs(clip.Duration()-0.5) > 1e-9 {
		t.Errorf("duration = %v", clip.Duration())
	}
}

func TestDecodeGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("RIF")},
		{"not audio", []byte("this is definitely not an audio container at all")},
		{"bad RIFF", append([]byte("RIFF"), make([]byte, 16)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !IsDecodeError(err) {
				t.Errorf("err = %v, want DecodeError", err)
			}
		})
	}
}

// wav8bit собирает минимальный моно 8-bit WAV: беззнаковые сэмплы 0..255
func wav8bit(data []byte, rate int) []byte {
	var buf bytes.Buffer
	write := func(v interface{}) { binary.Write(&buf, binary.LittleEndian, v) }
	buf.WriteString("RIFF")
	write(uint32(36 + len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1)) // PCM
	write(uint16(1)) // mono
	write(uint32(rate))
	write(uint32(rate)) // byte rate
	write(uint16(1))    // block align
	write(uint16(8))
	buf.WriteString("data")
	write(uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

// 8-bit сэмплы центрируются: 128 -> 0, без постоянного смещения
func TestDecode8BitWAV(t *testing.T) {
	raw := wav8bit([]byte{128, 192, 64, 128}, 8000)

	clip, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []float32{0, 0.5, -0.5, 0}
	if len(clip.Samples) != len(want) {
		t.Fatalf("length = %d, want %d", len(clip.Samples), len(want))
	}
	for i, w := range want {
		if math.Abs(float64(clip.Samples[i]-w)) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, clip.Samples[i], w)
		}
	}
}

// Сведение идентичных каналов не должно менять сигнал
func TestDownmixMonoIdenticalChannels(t *testing.T) {
	ch := sine(220, 0.1, 8000)
	mono := DownmixMono(ch, ch)
	if len(mono) != len(ch) {
		t.Fatalf("length = %d, want %d", len(mono), len(ch))
	}
	for i := range ch {
		if math.Abs(float64(mono[i]-ch[i])) > 1e-7 {
			t.Fatalf("sample %d changed: %v != %v", i, mono[i], ch[i])
		}
	}
}

// Противофазные каналы дают тишину
func TestDownmixMonoOpposite(t *testing.T) {
	ch := sine(220, 0.1, 8000)
	inv := make([]float32, len(ch))
	for i, s := range ch {
		inv[i] = -s
	}
	mono := DownmixMono(ch, inv)
	for i, s := range mono {
		if s != 0 {
			t.Fatalf("sample %d = %v, want 0", i, s)
		}
	}
}

func TestDownmixMonoEmpty(t *testing.T) {
	if got := DownmixMono(); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestResample(t *testing.T) {
	in := sine(100, 1.0, 48000)
	out := Resample(in, 48000, 16000)
	if want := 16000; len(out) != want {
		t.Errorf("length = %d, want %d", len(out), want)
	}
	if same := Resample(in, 48000, 48000); len(same) != len(in) {
		t.Errorf("no-op resample changed length")
	}
}

// highPass должен убрать постоянную составляющую
func TestApplyFiltersRemovesDC(t *testing.T) {
	rate := 16000
	in := sine(220, 0.5, rate)
	for i := range in {
		in[i] += 0.2 // DC offset
	}

	out := ApplyFilters(in, rate, FilterConfig{HighPassEnabled: true, HighPassCutoff: 60})

	var mean float64
	// пропускаем переходный процесс фильтра
	for _, s := range out[rate/10:] {
		mean += float64(s)
	}
	mean /= float64(len(out) - rate/10)
	if math.Abs(mean) > 0.01 {
		t.Errorf("residual DC = %v", mean)
	}
}

func TestNormalizePeak(t *testing.T) {
	in := []float32{0.1, -0.2, 0.05}
	out := ApplyFilters(in, 16000, FilterConfig{NormalizationEnabled: true, TargetPeakLevel: 0.9})

	var peak float32
	for _, s := range out {
		if a := abs32(s); a > peak {
			peak = a
		}
	}
	if math.Abs(float64(peak)-0.9) > 1e-6 {
		t.Errorf("peak = %v, want 0.9", peak)
	}
}
