package store

import (
	"context"
	"fmt"
)

// FindChild ищет элемент папки по имени
func FindChild(ctx context.Context, s Store, folderID, name string) (Entry, bool, error) {
	entries, err := s.ListChildren(ctx, folderID)
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// EnsureFolder возвращает id подпапки parent/name, создавая её при
// отсутствии. Проверка и создание не атомарны — принятое ограничение
// однопользовательского интерактивного режима.
func EnsureFolder(ctx context.Context, s Store, parentID, name string) (string, error) {
	e, found, err := FindChild(ctx, s, parentID, name)
	if err != nil {
		return "", err
	}
	if found {
		if e.Type != EntryFolder {
			return "", fmt.Errorf("%q exists but is not a folder", name)
		}
		return e.ID, nil
	}
	return s.CreateFolder(ctx, parentID, name)
}

// ExpectedReportArtifacts имена четырёх артефактов датированного отчёта.
// Формат имён битово точен: от него зависит Trend Aggregator.
func ExpectedReportArtifacts(date, task string) []string {
	prefix := date + "_" + task
	return []string{
		prefix + "_features.csv",
		prefix + "_pitch.png",
		prefix + "_intensity.png",
		prefix + "_spectrogram.png",
	}
}

// ReportExists сообщает есть ли в папке хотя бы один ожидаемый артефакт
// отчёта (date, task). Используется как guard от повторного сохранения.
func ReportExists(ctx context.Context, s Store, folderID, date, task string) (bool, error) {
	entries, err := s.ListChildren(ctx, folderID)
	if err != nil {
		return false, err
	}
	existing := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Type == EntryFile {
			existing[e.Name] = true
		}
	}
	for _, name := range ExpectedReportArtifacts(date, task) {
		if existing[name] {
			return true, nil
		}
	}
	return false, nil
}
