package trend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"voicelab/store"
)

// SessionFolderPrefix префикс папок-сессий внутри папки задачи
const SessionFolderPrefix = "session_"

// FeatureFilename имя feature CSV внутри папки-сессии
const FeatureFilename = "features.csv"

// AudioFilename имя аудиофайла внутри папки-сессии
const AudioFilename = "audio.wav"

// TaskTrend собранный лонгитюдный отчёт одной задачи.
// Warnings — человекочитаемые причины пропуска отдельных сессий;
// пропуск сессии не фатален, тренд строится из остальных.
type TaskTrend struct {
	Table     *TrendTable
	Summaries []TrendSummary
	Warnings  []string
}

// FetchTaskTrend обходит папку задачи и строит тренд. Поддерживаются
// обе раскладки: датированные файлы <label>_..._features.csv прямо в
// папке и подпапки session_<label> с features.csv внутри. Если не
// удалось прочитать ни одного CSV — NotFoundError.
func FetchTaskTrend(ctx context.Context, s store.Store, taskFolderID string) (*TaskTrend, error) {
	entries, err := s.ListChildren(ctx, taskFolderID)
	if err != nil {
		return nil, err
	}

	var rows []Row
	var warnings []string

	// датированные файлы: метка сессии зашита в имя, обходим по
	// возрастанию имён чтобы порядок чтения был детерминированным
	files := make([]store.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Type == store.EntryFile && IsFeatureCSV(e.Name) {
			files = append(files, e)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	for _, e := range files {
		label, ok := SessionLabelFromFilename(e.Name)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("skipped %s: no session label", e.Name))
			continue
		}
		sessionRows, err := fetchCSV(ctx, s, e.ID, label)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", e.Name, err))
			continue
		}
		rows = append(rows, sessionRows...)
	}

	// сессионные подпапки
	folderRows, _, folderWarnings, err := FetchSessionFeatures(ctx, s, taskFolderID)
	if err != nil {
		return nil, err
	}
	rows = append(rows, folderRows...)
	warnings = append(warnings, folderWarnings...)

	if len(rows) == 0 {
		return nil, &store.NotFoundError{What: "feature CSVs in folder " + taskFolderID}
	}

	table := BuildTable(rows)
	return &TaskTrend{
		Table:     table,
		Summaries: Summarize(table),
		Warnings:  warnings,
	}, nil
}

// FetchSessionFeatures читает feature CSV из подпапок session_<label>.
// Возвращает длинные строки и карту метка -> id аудиофайла сессии
// (для повторного прослушивания в дашборде).
func FetchSessionFeatures(ctx context.Context, s store.Store, taskFolderID string) ([]Row, map[string]string, []string, error) {
	entries, err := s.ListChildren(ctx, taskFolderID)
	if err != nil {
		return nil, nil, nil, err
	}

	folders := make([]store.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Type == store.EntryFolder && strings.HasPrefix(e.Name, SessionFolderPrefix) {
			folders = append(folders, e)
		}
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })

	var rows []Row
	var warnings []string
	audio := make(map[string]string)

	for _, folder := range folders {
		label := strings.TrimPrefix(folder.Name, SessionFolderPrefix)
		children, err := s.ListChildren(ctx, folder.ID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", folder.Name, err))
			continue
		}

		var csvID string
		for _, c := range children {
			if c.Type != store.EntryFile {
				continue
			}
			switch c.Name {
			case FeatureFilename:
				csvID = c.ID
			case AudioFilename:
				audio[label] = c.ID
			}
		}
		if csvID == "" {
			warnings = append(warnings, fmt.Sprintf("skipped %s: no %s", folder.Name, FeatureFilename))
			continue
		}

		sessionRows, err := fetchCSV(ctx, s, csvID, label)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", folder.Name, err))
			continue
		}
		rows = append(rows, sessionRows...)
	}
	return rows, audio, warnings, nil
}

func fetchCSV(ctx context.Context, s store.Store, fileID, session string) ([]Row, error) {
	data, err := s.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return ParseFeatureCSV(data, session)
}

// EncodeTrendCSV сериализует таблицу в wide CSV для выгрузки:
// первая колонка Feature, дальше по колонке на сессию, пустая
// ячейка для отсутствующих значений
func EncodeTrendCSV(t *TrendTable) []byte {
	var b strings.Builder
	b.WriteString("Feature")
	for _, s := range t.Sessions {
		b.WriteString(",")
		b.WriteString(s)
	}
	b.WriteString("\n")
	for _, f := range t.Features {
		b.WriteString(csvField(f))
		for _, s := range t.Sessions {
			b.WriteString(",")
			if v, ok := t.Cell(f, s); ok {
				b.WriteString(strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), "."))
			}
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}
