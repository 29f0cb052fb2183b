package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
)

// RegistryFilename имя реестра пользователей в корне хранилища
const RegistryFilename = "users.csv"

// User строка реестра: идентичность -> корневая папка пользователя
type User struct {
	Username string
	Email    string
	FolderID string
}

// Registry реестр пользователей поверх users.csv.
// Файл читается при логине и перезаписывается целиком (новая версия,
// не патч) при регистрации новой идентичности.
type Registry struct {
	store  Store
	fileID string // пустой пока users.csv не существует
	users  []User
}

// LoadRegistry читает users.csv из корня хранилища.
// Отсутствие файла не ошибка: реестр начинается пустым.
func LoadRegistry(ctx context.Context, s Store) (*Registry, error) {
	r := &Registry{store: s}

	entry, found, err := FindChild(ctx, s, s.RootID(), RegistryFilename)
	if err != nil {
		return nil, err
	}
	if !found {
		return r, nil
	}
	r.fileID = entry.ID

	data, err := s.Download(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	users, err := parseUsersCSV(data)
	if err != nil {
		return nil, fmt.Errorf("malformed %s: %w", RegistryFilename, err)
	}
	r.users = users
	return r, nil
}

// Lookup ищет пользователя по email
func (r *Registry) Lookup(email string) (User, bool) {
	for _, u := range r.users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

// Login возвращает корневую папку идентичности. Первый логин создаёт
// папку пользователя (по email) и дописывает строку в реестр.
func (r *Registry) Login(ctx context.Context, username, email string) (folderID string, isNew bool, err error) {
	if u, ok := r.Lookup(email); ok {
		return u.FolderID, false, nil
	}

	folderID, err = r.store.CreateFolder(ctx, r.store.RootID(), email)
	if err != nil {
		return "", false, err
	}

	r.users = append(r.users, User{Username: username, Email: email, FolderID: folderID})
	if err := r.save(ctx); err != nil {
		return "", false, err
	}

	log.Printf("Registered new user %s (%s)", username, email)
	return folderID, true, nil
}

// save перезаписывает users.csv целиком
func (r *Registry) save(ctx context.Context) error {
	data := encodeUsersCSV(r.users)
	if r.fileID != "" {
		return r.store.UploadVersion(ctx, r.fileID, data)
	}
	id, err := r.store.Upload(ctx, r.store.RootID(), RegistryFilename, data)
	if err != nil {
		return err
	}
	r.fileID = id
	return nil
}

func parseUsersCSV(data []byte) ([]User, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	var users []User
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("row %d has %d columns, want 3", i, len(rec))
		}
		users = append(users, User{Username: rec[0], Email: rec[1], FolderID: rec[2]})
	}
	return users, nil
}

func encodeUsersCSV(users []User) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"username", "email", "folder_id"})
	for _, u := range users {
		w.Write([]string{u.Username, u.Email, u.FolderID})
	}
	w.Flush()
	return buf.Bytes()
}
