// Package store абстрагирует облачное объектное хранилище сессий:
// четыре примитива (папка, список, загрузка, скачивание) поверх которых
// живут конвенции именования артефактов.
package store

import (
	"context"
	"errors"
	"fmt"
)

// EntryType тип элемента папки
type EntryType string

const (
	EntryFolder EntryType = "folder"
	EntryFile   EntryType = "file"
)

// Entry элемент папки хранилища
type Entry struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type EntryType `json:"type"`
}

// Store примитивы хранилища, которые потребляет ядро.
// UploadVersion нужен единственному перезаписываемому файлу — users.csv.
type Store interface {
	RootID() string
	CreateFolder(ctx context.Context, parentID, name string) (string, error)
	ListChildren(ctx context.Context, folderID string) ([]Entry, error)
	Upload(ctx context.Context, folderID, filename string, data []byte) (string, error)
	UploadVersion(ctx context.Context, fileID string, data []byte) error
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// NotFoundError ожидаемый файл или папка отсутствует в хранилище
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found in store: %s", e.What)
}

// IsNotFound проверяет является ли ошибка NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ExternalServiceError вызов внешнего сервиса (хранилище, AI API) не удался.
// Никогда не фатальна: поднимается до границы операции и показывается
// пользователю.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
