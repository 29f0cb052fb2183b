package audio

import (
	"fmt"
	"os"
	"sync"

	"github.com/braheezy/shine-mp3/pkg/mp3"
)

// MP3Writer стриминговый писатель MP3 через shine-mp3 (чистый Go, без FFmpeg).
// Используется для компактного экспорта записей из cmd/testrecord.
type MP3Writer struct {
	file       *os.File
	encoder    *mp3.Encoder
	filePath   string
	sampleRate int
	channels   int

	// shine кодирует фиксированными гранулами, буферизуем хвост
	buffer []int16

	samplesWritten int64
	mu             sync.Mutex
	closed         bool
}

// NewMP3Writer создаёт новый MP3 writer
func NewMP3Writer(filePath string, sampleRate, channels int) (*MP3Writer, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &MP3Writer{
		file:       file,
		encoder:    mp3.NewEncoder(sampleRate, channels),
		filePath:   filePath,
		sampleRate: sampleRate,
		channels:   channels,
		buffer:     make([]int16, 0, 8192),
	}, nil
}

// Write добавляет float32 сэмплы в кодировщик
func (w *MP3Writer) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer already closed")
	}

	for _, s := range samples {
		w.buffer = append(w.buffer, clampPCM16(s))
	}
	w.samplesWritten += int64(len(samples))

	return w.flushFrames(false)
}

// flushFrames кодирует накопленные полные гранулы
func (w *MP3Writer) flushFrames(final bool) error {
	// shine требует 1152 сэмпла на канал за проход
	granule := 1152 * w.channels
	for len(w.buffer) >= granule {
		if err := w.encoder.Write(w.file, w.buffer[:granule]); err != nil {
			return fmt.Errorf("mp3 encode failed: %w", err)
		}
		w.buffer = w.buffer[granule:]
	}

	if final && len(w.buffer) > 0 {
		// Добиваем хвост нулями до полной гранулы
		tail := make([]int16, granule)
		copy(tail, w.buffer)
		w.buffer = w.buffer[:0]
		if err := w.encoder.Write(w.file, tail); err != nil {
			return fmt.Errorf("mp3 encode failed: %w", err)
		}
	}
	return nil
}

// SamplesWritten возвращает количество принятых сэмплов
func (w *MP3Writer) SamplesWritten() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.samplesWritten
}

// Close кодирует остаток буфера и закрывает файл
func (w *MP3Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.flushFrames(true); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// FilePath возвращает путь к файлу
func (w *MP3Writer) FilePath() string { return w.filePath }
