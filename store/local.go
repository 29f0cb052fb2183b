package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore файловое хранилище с тем же контрактом что и Box.
// Используется в тестах и для офлайн запусков. ID элементов —
// относительные пути от корня.
type LocalStore struct {
	root string
}

// NewLocalStore создаёт хранилище в директории root
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) RootID() string { return "." }

// abs переводит id в абсолютный путь, не выпуская за пределы корня
func (s *LocalStore) abs(id string) (string, error) {
	clean := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(id)))
	if clean != s.root && !strings.HasPrefix(clean, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("id escapes store root: %s", id)
	}
	return clean, nil
}

func (s *LocalStore) rel(path string) string {
	r, err := filepath.Rel(s.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(r)
}

// CreateFolder создаёт подпапку parent/name
func (s *LocalStore) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	parent, err := s.abs(parentID)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	return s.rel(dir), nil
}

// ListChildren возвращает содержимое папки
func (s *LocalStore) ListChildren(ctx context.Context, folderID string) ([]Entry, error) {
	dir, err := s.abs(folderID)
	if err != nil {
		return nil, err
	}
	items, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{What: "folder " + folderID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list folder: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		t := EntryFile
		if item.IsDir() {
			t = EntryFolder
		}
		entries = append(entries, Entry{
			ID:   s.rel(filepath.Join(dir, item.Name())),
			Name: item.Name(),
			Type: t,
		})
	}
	return entries, nil
}

// Upload записывает новый файл в папку
func (s *LocalStore) Upload(ctx context.Context, folderID, filename string, data []byte) (string, error) {
	dir, err := s.abs(folderID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return s.rel(path), nil
}

// UploadVersion перезаписывает существующий файл
func (s *LocalStore) UploadVersion(ctx context.Context, fileID string, data []byte) error {
	path, err := s.abs(fileID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &NotFoundError{What: "file " + fileID}
	}
	return os.WriteFile(path, data, 0644)
}

// Download читает содержимое файла
func (s *LocalStore) Download(ctx context.Context, fileID string) ([]byte, error) {
	path, err := s.abs(fileID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{What: "file " + fileID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
