package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"voicelab/analysis"
	"voicelab/audio"
	"voicelab/store"
	"voicelab/trend"
)

// Saver раскладывает результаты анализа по папкам хранилища.
// Now инжектируется в тестах; в бою это time.Now.
type Saver struct {
	Store store.Store
	Now   func() time.Time
}

// NewSaver создаёт Saver поверх хранилища
func NewSaver(s store.Store) *Saver {
	return &Saver{Store: s, Now: time.Now}
}

// TaskReport результат генерации датированного отчёта.
// AlreadyExists=true означает что отчёт за эту дату уже был в папке
// и ничего не записывалось.
type TaskReport struct {
	Record        analysis.FeatureRecord
	Plots         map[string][]byte
	AlreadyExists bool
}

// SaveSessionAnalysis сохраняет разовую сессию в иерархию
// user/task/session_<метка времени>/ с аудио, фичами и графиками.
// Возвращает id папки сессии.
func (s *Saver) SaveSessionAnalysis(ctx context.Context, userFolderID, task string, wavData []byte, a *Analysis) (string, error) {
	if !IsValidTask(task) {
		return "", fmt.Errorf("unknown task %q", task)
	}

	taskFolderID, err := store.EnsureFolder(ctx, s.Store, userFolderID, task)
	if err != nil {
		return "", err
	}

	label := s.Now().Format("20060102_150405")
	sessionFolderID, err := s.Store.CreateFolder(ctx, taskFolderID, trend.SessionFolderPrefix+label)
	if err != nil {
		return "", err
	}

	files := map[string][]byte{
		trend.AudioFilename:   wavData,
		trend.FeatureFilename: trend.EncodeFeatureCSV(a.Result.Record),
	}
	for name, png := range a.Plots {
		files[name] = png
	}
	for name, data := range files {
		if _, err := s.Store.Upload(ctx, sessionFolderID, name, data); err != nil {
			return "", fmt.Errorf("failed to upload %s: %w", name, err)
		}
	}

	log.Printf("Saved session %s for task %q", label, task)
	return sessionFolderID, nil
}

// RunTaskReport строит датированный отчёт задачи: находит запись
// <date>_<task>.wav в папке user/pid/task, анализирует и выгружает
// четыре артефакта. Если хотя бы один ожидаемый артефакт уже есть,
// отчёт считается готовым и ничего не пишется.
func (s *Saver) RunTaskReport(ctx context.Context, userFolderID, pid, date, task string) (*TaskReport, error) {
	if !IsValidTask(task) {
		return nil, fmt.Errorf("unknown task %q", task)
	}

	pidFolderID, err := store.EnsureFolder(ctx, s.Store, userFolderID, pid)
	if err != nil {
		return nil, err
	}
	taskFolderID, err := store.EnsureFolder(ctx, s.Store, pidFolderID, task)
	if err != nil {
		return nil, err
	}

	wavName := date + "_" + task + ".wav"
	entry, found, err := store.FindChild(ctx, s.Store, taskFolderID, wavName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &store.NotFoundError{What: "recording " + wavName}
	}

	raw, err := s.Store.Download(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	a, err := Analyze(raw, analysis.ProfileForTask(task))
	if err != nil {
		return nil, err
	}

	exists, err := store.ReportExists(ctx, s.Store, taskFolderID, date, task)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Printf("Report for %s / %q already exists, skipping upload", date, task)
		return &TaskReport{Record: a.Result.Record, Plots: a.Plots, AlreadyExists: true}, nil
	}

	prefix := date + "_" + task
	artifacts := map[string][]byte{
		prefix + "_features.csv":    trend.EncodeFeatureCSV(a.Result.Record),
		prefix + "_pitch.png":       a.Plots["pitch.png"],
		prefix + "_intensity.png":   a.Plots["intensity.png"],
		prefix + "_spectrogram.png": a.Plots["spectrogram.png"],
	}
	for name, data := range artifacts {
		if _, err := s.Store.Upload(ctx, taskFolderID, name, data); err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", name, err)
		}
	}

	return &TaskReport{Record: a.Result.Record, Plots: a.Plots}, nil
}

// SaveSegment вырезает фрагмент [start, end) секунд из клипа и
// сохраняет его как <pid>_<date>_<start>-<end>.wav в папку user/pid
func (s *Saver) SaveSegment(ctx context.Context, userFolderID, pid, date string, start, end float64, clip audio.Clip) (string, error) {
	if end <= start {
		return "", fmt.Errorf("invalid segment [%.2f, %.2f)", start, end)
	}

	lo := int(start * float64(clip.SampleRate))
	hi := int(end * float64(clip.SampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(clip.Samples) {
		hi = len(clip.Samples)
	}
	if lo >= hi {
		return "", fmt.Errorf("segment [%.2f, %.2f) outside clip", start, end)
	}

	pidFolderID, err := store.EnsureFolder(ctx, s.Store, userFolderID, pid)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s_%.2f-%.2f.wav", pid, date, start, end)
	data := audio.EncodeWAV(clip.Samples[lo:hi], clip.SampleRate)
	return s.Store.Upload(ctx, pidFolderID, name, data)
}

// TempWAV пишет клип во временный WAV файл (для локального
// прослушивания). Вызывающий отвечает за удаление.
func TempWAV(clip audio.Clip) (string, error) {
	path := filepath.Join(os.TempDir(), "voicelab_"+uuid.New().String()+".wav")
	data := audio.EncodeWAV(clip.Samples, clip.SampleRate)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write temp WAV: %w", err)
	}
	return path, nil
}
