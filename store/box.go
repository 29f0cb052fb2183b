package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// BoxStore клиент Box REST API v2 (developer token auth).
// Используются только четыре примитива + загрузка версии файла.
type BoxStore struct {
	Token     string
	Root      string // id корневой папки приложения
	APIURL    string // база https://api.box.com/2.0
	UploadURL string // база https://upload.box.com/api/2.0
	HTTP      *http.Client
}

// NewBoxStore создаёт клиент Box с продакшн эндпоинтами
func NewBoxStore(token, rootFolderID string) *BoxStore {
	return &BoxStore{
		Token:     token,
		Root:      rootFolderID,
		APIURL:    "https://api.box.com/2.0",
		UploadURL: "https://upload.box.com/api/2.0",
		HTTP:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (b *BoxStore) RootID() string { return b.Root }

// CreateFolder создаёт подпапку parent/name
func (b *BoxStore) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"name":   name,
		"parent": map[string]string{"id": parentID},
	})

	var out struct {
		ID string `json:"id"`
	}
	if err := b.doJSON(ctx, http.MethodPost, b.APIURL+"/folders", bytes.NewReader(body), "application/json", &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// ListChildren возвращает содержимое папки (с постраничным обходом)
func (b *BoxStore) ListChildren(ctx context.Context, folderID string) ([]Entry, error) {
	var entries []Entry
	offset := 0
	for {
		u := fmt.Sprintf("%s/folders/%s/items?limit=1000&offset=%d", b.APIURL, url.PathEscape(folderID), offset)
		var out struct {
			TotalCount int `json:"total_count"`
			Entries    []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"entries"`
		}
		if err := b.doJSON(ctx, http.MethodGet, u, nil, "", &out); err != nil {
			return nil, err
		}
		for _, e := range out.Entries {
			t := EntryFile
			if e.Type == "folder" {
				t = EntryFolder
			}
			entries = append(entries, Entry{ID: e.ID, Name: e.Name, Type: t})
		}
		offset += len(out.Entries)
		if offset >= out.TotalCount || len(out.Entries) == 0 {
			break
		}
	}
	return entries, nil
}

// Upload загружает новый файл в папку
func (b *BoxStore) Upload(ctx context.Context, folderID, filename string, data []byte) (string, error) {
	attrs := map[string]interface{}{
		"name":   filename,
		"parent": map[string]string{"id": folderID},
	}
	body, contentType, err := multipartUpload(attrs, filename, data)
	if err != nil {
		return "", &ExternalServiceError{Service: "box upload", Err: err}
	}

	var out struct {
		Entries []struct {
			ID string `json:"id"`
		} `json:"entries"`
	}
	if err := b.doJSON(ctx, http.MethodPost, b.UploadURL+"/files/content", body, contentType, &out); err != nil {
		return "", err
	}
	if len(out.Entries) == 0 {
		return "", &ExternalServiceError{Service: "box upload", Err: fmt.Errorf("empty entries in response")}
	}
	return out.Entries[0].ID, nil
}

// UploadVersion загружает новую версию существующего файла
// (users.csv перезаписывается целиком, не патчится)
func (b *BoxStore) UploadVersion(ctx context.Context, fileID string, data []byte) error {
	attrs := map[string]interface{}{}
	body, contentType, err := multipartUpload(attrs, "file", data)
	if err != nil {
		return &ExternalServiceError{Service: "box upload version", Err: err}
	}
	u := fmt.Sprintf("%s/files/%s/content", b.UploadURL, url.PathEscape(fileID))
	return b.doJSON(ctx, http.MethodPost, u, body, contentType, nil)
}

// Download скачивает содержимое файла
func (b *BoxStore) Download(ctx context.Context, fileID string) ([]byte, error) {
	u := fmt.Sprintf("%s/files/%s/content", b.APIURL, url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &ExternalServiceError{Service: "box download", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+b.Token)

	resp, err := b.HTTP.Do(req)
	if err != nil {
		return nil, &ExternalServiceError{Service: "box download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{What: "file " + fileID}
	}
	if resp.StatusCode >= 300 {
		return nil, &ExternalServiceError{Service: "box download", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return io.ReadAll(resp.Body)
}

// doJSON выполняет запрос с токеном и парсит JSON ответ
func (b *BoxStore) doJSON(ctx context.Context, method, u string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &ExternalServiceError{Service: "box", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+b.Token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := b.HTTP.Do(req)
	if err != nil {
		return &ExternalServiceError{Service: "box", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &NotFoundError{What: u}
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ExternalServiceError{Service: "box", Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ExternalServiceError{Service: "box", Err: fmt.Errorf("bad response: %w", err)}
	}
	return nil
}

// multipartUpload собирает multipart тело Box-загрузки:
// attributes (JSON) + file
func multipartUpload(attrs map[string]interface{}, filename string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	attrJSON, err := json.Marshal(attrs)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("attributes", string(attrJSON)); err != nil {
		return nil, "", err
	}
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
