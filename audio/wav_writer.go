package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

// WAVWriter потоковый писатель WAV файлов (PCM16)
type WAVWriter struct {
	file           *os.File
	filePath       string
	sampleRate     int
	channels       int
	samplesWritten int64
	mu             sync.Mutex
}

// NewWAVWriter создаёт новый WAV writer
func NewWAVWriter(filePath string, sampleRate, channels int) (*WAVWriter, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}

	w := &WAVWriter{
		file:       file,
		filePath:   filePath,
		sampleRate: sampleRate,
		channels:   channels,
	}

	// Placeholder header, перезаписывается в Finalize
	if err := w.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}

	return w, nil
}

func (w *WAVWriter) writeHeader() error {
	if _, err := w.file.Seek(0, 0); err != nil {
		return err
	}
	hdr := wavHeader(w.sampleRate, w.channels, w.samplesWritten)
	_, err := w.file.Write(hdr)
	return err
}

// Write записывает float32 сэмплы в файл (конвертирует в PCM16)
func (w *WAVWriter) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(clampPCM16(s)))
	}
	if _, err := w.file.Write(buf); err != nil {
		return err
	}
	w.samplesWritten += int64(len(samples))
	return nil
}

// SamplesWritten возвращает количество записанных сэмплов
func (w *WAVWriter) SamplesWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samplesWritten
}

// Finalize обновляет header с правильным размером данных
func (w *WAVWriter) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeHeader()
}

// Close завершает запись и закрывает файл
func (w *WAVWriter) Close() error {
	if err := w.Finalize(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// FilePath возвращает путь к файлу
func (w *WAVWriter) FilePath() string { return w.filePath }

// EncodeWAV кодирует моно float32 сэмплы в WAV (PCM16) в памяти.
// Используется для артефактов сессий, загружаемых в хранилище.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	var buf bytes.Buffer
	buf.Write(wavHeader(sampleRate, 1, int64(len(samples))))
	pcm := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(clampPCM16(s)))
	}
	buf.Write(pcm)
	return buf.Bytes()
}

// wavHeader собирает 44-байтный RIFF/WAVE header для PCM16
func wavHeader(sampleRate, channels int, samplesWritten int64) []byte {
	const bitsPerSample = 16
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := uint32(samplesWritten * int64(bitsPerSample/8))

	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataSize))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))          // chunk size
	binary.Write(&b, binary.LittleEndian, uint16(1))           // PCM
	binary.Write(&b, binary.LittleEndian, uint16(channels))    // channels
	binary.Write(&b, binary.LittleEndian, uint32(sampleRate))  // sample rate
	binary.Write(&b, binary.LittleEndian, uint32(byteRate))    // byte rate
	binary.Write(&b, binary.LittleEndian, uint16(blockAlign))  // block align
	binary.Write(&b, binary.LittleEndian, uint16(bitsPerSample))

	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, dataSize)
	return b.Bytes()
}

func clampPCM16(s float32) int16 {
	if s > 1.0 {
		s = 1.0
	} else if s < -1.0 {
		s = -1.0
	}
	return int16(s * 32767)
}
