package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// DecodeError означает что байтовый поток не является поддерживаемым
// аудио контейнером (WAV или MP3)
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode error: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError проверяет является ли ошибка ошибкой декодирования
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Clip декодированный аудио клип: моно float32 [-1, 1] + частота дискретизации
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration возвращает длительность клипа в секундах
func (c Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Decode читает WAV или MP3 байты в моно float32 сэмплы.
// Многоканальный вход сводится в моно средним арифметическим по каналам
// (не peak-preserving: фазовая компенсация стерео — принятое ограничение).
func Decode(raw []byte) (Clip, error) {
	if len(raw) < 4 {
		return Clip{}, &DecodeError{Reason: "stream too short"}
	}

	// RIFF заголовок -> WAV, иначе пробуем MP3
	if bytes.HasPrefix(raw, []byte("RIFF")) {
		return decodeWAV(raw)
	}
	return decodeMP3(raw)
}

// decodeWAV декодирует WAV (PCM 8/16/24/32 bit) через go-audio
func decodeWAV(raw []byte) (Clip, error) {
	d := wav.NewDecoder(bytes.NewReader(raw))
	if !d.IsValidFile() {
		return Clip{}, &DecodeError{Reason: "not a valid WAV file"}
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Clip{}, &DecodeError{Reason: "failed to read WAV PCM", Err: err}
	}
	if buf == nil || len(buf.Data) == 0 {
		return Clip{}, &DecodeError{Reason: "empty WAV data"}
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(d.BitDepth)
	}
	scale := float32(int64(1) << (bitDepth - 1))

	// 8-bit WAV хранится беззнаково (0..255), центрируем перед нормировкой
	var offset float32
	if bitDepth == 8 {
		offset = 128
	}

	// Интерливленные int сэмплы -> моно float32
	numFrames := len(buf.Data) / channels
	mono := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += (float32(buf.Data[i*channels+ch]) - offset) / scale
		}
		mono[i] = sum / float32(channels)
	}

	return Clip{Samples: mono, SampleRate: buf.Format.SampleRate}, nil
}

// decodeMP3 декодирует MP3 через go-mp3 (чистый Go, без FFmpeg).
// go-mp3 всегда отдаёт signed 16-bit stereo interleaved.
func decodeMP3(raw []byte) (Clip, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return Clip{}, &DecodeError{Reason: "not a valid MP3 stream", Err: err}
	}

	pcm := make([]byte, decoder.Length())
	n, err := io.ReadFull(decoder, pcm)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Clip{}, &DecodeError{Reason: "failed to read MP3 PCM", Err: err}
	}
	pcm = pcm[:n]

	// 2 байта на сэмпл * 2 канала
	numFrames := n / 4
	if numFrames == 0 {
		return Clip{}, &DecodeError{Reason: "empty MP3 data"}
	}

	mono := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		left := int16(uint16(pcm[i*4]) | uint16(pcm[i*4+1])<<8)
		right := int16(uint16(pcm[i*4+2]) | uint16(pcm[i*4+3])<<8)
		mono[i] = (float32(left) + float32(right)) / 2.0 / 32768.0
	}

	return Clip{Samples: mono, SampleRate: decoder.SampleRate()}, nil
}

// DownmixMono сводит раздельные каналы в моно средним арифметическим.
// Инвариант: len(result) == len(channels[i]) для любого канала.
func DownmixMono(channels ...[]float32) []float32 {
	if len(channels) == 0 {
		return nil
	}
	if len(channels) == 1 {
		out := make([]float32, len(channels[0]))
		copy(out, channels[0])
		return out
	}

	n := len(channels[0])
	mono := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for _, ch := range channels {
			sum += ch[i]
		}
		mono[i] = sum / float32(len(channels))
	}
	return mono
}
