package store

import (
	"bytes"
	"context"
	"testing"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return s
}

func TestLocalStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	folderID, err := s.CreateFolder(ctx, s.RootID(), "alice@example.com")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	fileID, err := s.Upload(ctx, folderID, "features.csv", []byte("Feature,Value\n"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	entries, err := s.ListChildren(ctx, folderID)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "features.csv" || entries[0].Type != EntryFile {
		t.Fatalf("entries = %+v", entries)
	}

	data, err := s.Download(ctx, fileID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !bytes.Equal(data, []byte("Feature,Value\n")) {
		t.Errorf("data = %q", data)
	}

	if err := s.UploadVersion(ctx, fileID, []byte("Feature,Value\nCPP (dB),12.30\n")); err != nil {
		t.Fatalf("UploadVersion: %v", err)
	}
	data, _ = s.Download(ctx, fileID)
	if !bytes.Contains(data, []byte("CPP")) {
		t.Errorf("version not replaced: %q", data)
	}
}

func TestLocalStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.ListChildren(ctx, "no-such-folder"); !IsNotFound(err) {
		t.Errorf("ListChildren err = %v, want NotFoundError", err)
	}
	if _, err := s.Download(ctx, "no-such-file"); !IsNotFound(err) {
		t.Errorf("Download err = %v, want NotFoundError", err)
	}
	if err := s.UploadVersion(ctx, "no-such-file", []byte("x")); !IsNotFound(err) {
		t.Errorf("UploadVersion err = %v, want NotFoundError", err)
	}
}

// ID не должен выводить за пределы корня хранилища
func TestLocalStoreEscape(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Download(ctx, "../outside"); err == nil || IsNotFound(err) {
		t.Errorf("escaping id accepted: %v", err)
	}
	if _, err := s.CreateFolder(ctx, "..", "evil"); err == nil {
		t.Error("escaping parent accepted")
	}
}

func TestEnsureFolder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id1, err := EnsureFolder(ctx, s, s.RootID(), "Rainbow passage")
	if err != nil {
		t.Fatalf("EnsureFolder: %v", err)
	}
	id2, err := EnsureFolder(ctx, s, s.RootID(), "Rainbow passage")
	if err != nil {
		t.Fatalf("EnsureFolder (repeat): %v", err)
	}
	if id1 != id2 {
		t.Errorf("ids differ: %q vs %q", id1, id2)
	}

	// Файл с тем же именем — не папка
	if _, err := s.Upload(ctx, s.RootID(), "notes", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureFolder(ctx, s, s.RootID(), "notes"); err == nil {
		t.Error("expected error for file with the same name")
	}
}

func TestExpectedReportArtifacts(t *testing.T) {
	got := ExpectedReportArtifacts("2024-03-15", "Rainbow passage")
	want := []string{
		"2024-03-15_Rainbow passage_features.csv",
		"2024-03-15_Rainbow passage_pitch.png",
		"2024-03-15_Rainbow passage_intensity.png",
		"2024-03-15_Rainbow passage_spectrogram.png",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d names", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("artifact %d = %q, want %q", i, got[i], want[i])
		}
	}
}

// Достаточно одного артефакта чтобы отчёт считался существующим
func TestReportExists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	folder, _ := s.CreateFolder(ctx, s.RootID(), "task")

	exists, err := ReportExists(ctx, s, folder, "2024-03-15", "Rainbow passage")
	if err != nil || exists {
		t.Fatalf("empty folder: exists=%v err=%v", exists, err)
	}

	if _, err := s.Upload(ctx, folder, "2024-03-15_Rainbow passage_pitch.png", []byte("png")); err != nil {
		t.Fatal(err)
	}
	exists, err = ReportExists(ctx, s, folder, "2024-03-15", "Rainbow passage")
	if err != nil || !exists {
		t.Errorf("after upload: exists=%v err=%v", exists, err)
	}

	// Другая дата не должна совпасть
	exists, _ = ReportExists(ctx, s, folder, "2024-03-16", "Rainbow passage")
	if exists {
		t.Error("matched a different date")
	}
}

func TestRegistryLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	reg, err := LoadRegistry(ctx, s)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	folderID, isNew, err := reg.Login(ctx, "Alice", "alice@example.com")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !isNew {
		t.Error("first login should register")
	}

	// Повторный логин: та же папка, без записи
	again, isNew, err := reg.Login(ctx, "Alice", "alice@example.com")
	if err != nil {
		t.Fatalf("Login (repeat): %v", err)
	}
	if isNew || again != folderID {
		t.Errorf("repeat login: isNew=%v folder=%q want %q", isNew, again, folderID)
	}

	// Реестр должен пережить перезагрузку
	reg2, err := LoadRegistry(ctx, s)
	if err != nil {
		t.Fatalf("LoadRegistry (reload): %v", err)
	}
	u, ok := reg2.Lookup("alice@example.com")
	if !ok || u.FolderID != folderID || u.Username != "Alice" {
		t.Errorf("reloaded user = %+v, ok=%v", u, ok)
	}

	// Второй пользователь дописывается новой версией файла
	if _, _, err := reg2.Login(ctx, "Bob", "bob@example.com"); err != nil {
		t.Fatalf("Login (second user): %v", err)
	}
	reg3, _ := LoadRegistry(ctx, s)
	if _, ok := reg3.Lookup("alice@example.com"); !ok {
		t.Error("first user lost after second registration")
	}
	if _, ok := reg3.Lookup("bob@example.com"); !ok {
		t.Error("second user missing")
	}
}

func TestParseUsersCSV(t *testing.T) {
	users, err := parseUsersCSV([]byte("username,email,folder_id\nAlice,alice@example.com,42\n"))
	if err != nil {
		t.Fatalf("parseUsersCSV: %v", err)
	}
	if len(users) != 1 || users[0].FolderID != "42" {
		t.Errorf("users = %+v", users)
	}

	if _, err := parseUsersCSV([]byte("username,email,folder_id\nonly-one-column\n")); err == nil {
		t.Error("expected error on short row")
	}
}
