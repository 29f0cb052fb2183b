package trend

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"voicelab/analysis"
	"voicelab/store"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// Проверяем кодек features.csv: запись с пропуском должна пережить
// сериализацию, а плейсхолдер — распарситься как Missing
func TestFeatureCSVRoundtrip(t *testing.T) {
	rec := analysis.FeatureRecord{Features: []analysis.Feature{
		{Name: analysis.FeatFundamentalFreq, Value: 220.5, Prec: 2},
		{Name: analysis.FeatDuration, Value: 2.0, Prec: 2},
		{Name: analysis.FeatJitterLocal, Missing: true},
	}}

	data := EncodeFeatureCSV(rec)
	rows, err := ParseFeatureCSV(data, "2024-01-10")
	if err != nil {
		t.Fatalf("ParseFeatureCSV: %v", err)
	}
	if len(rows) != len(rec.Features) {
		t.Fatalf("got %d rows, want %d", len(rows), len(rec.Features))
	}
	if rows[0].Feature != analysis.FeatFundamentalFreq || !almostEqual(rows[0].Value, 220.5, 1e-9) {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[0].Session != "2024-01-10" {
		t.Errorf("session = %q", rows[0].Session)
	}
	for _, r := range rows {
		if r.Feature == analysis.FeatJitterLocal && !r.Missing {
			t.Errorf("jitter placeholder parsed as value %v", r.Value)
		}
	}
}

func TestParseFeatureCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"wrong header", "a,b\nx,1\n"},
		{"short row", "Feature,Value\nonly-one-column\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFeatureCSV([]byte(tt.data), "s"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSessionLabelFromFilename(t *testing.T) {
	tests := []struct {
		name  string
		label string
		ok    bool
	}{
		{"2024-01-10_Rainbow passage_features.csv", "2024-01-10", true},
		{"_features.csv", "", false},
		{"noseparator.csv", "", false},
	}
	for _, tt := range tests {
		label, ok := SessionLabelFromFilename(tt.name)
		if label != tt.label || ok != tt.ok {
			t.Errorf("%q: got (%q, %v), want (%q, %v)", tt.name, label, ok, tt.label, tt.ok)
		}
	}
}

// Две сессии с F0 150 и 160: Count=2, Change=10, Mean=155, Std~7.071
func TestSummarizeTwoSessions(t *testing.T) {
	rows := []Row{
		{Feature: analysis.FeatFundamentalFreq, Value: 160, Session: "2024-02-01"},
		{Feature: analysis.FeatFundamentalFreq, Value: 150, Session: "2024-01-01"},
	}
	table := BuildTable(rows)
	if len(table.Sessions) != 2 || table.Sessions[0] != "2024-01-01" {
		t.Fatalf("sessions not sorted: %v", table.Sessions)
	}

	summaries := Summarize(table)
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries", len(summaries))
	}
	s := summaries[0]
	if s.Count != 2 || s.First != 150 || s.Last != 160 {
		t.Errorf("count/first/last = %d/%v/%v", s.Count, s.First, s.Last)
	}
	if !almostEqual(s.Change, 10, 1e-9) || !almostEqual(s.Mean, 155, 1e-9) {
		t.Errorf("change/mean = %v/%v", s.Change, s.Mean)
	}
	if !almostEqual(s.Std, 7.0710678, 1e-6) {
		t.Errorf("std = %v", s.Std)
	}
	if s.Min != 150 || s.Max != 160 {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
}

// Одна сессия: разброс не определён, отдаём 0
func TestSummarizeSingleSession(t *testing.T) {
	table := BuildTable([]Row{{Feature: "X", Value: 5, Session: "a"}})
	summaries := Summarize(table)
	if len(summaries) != 1 || summaries[0].Count != 1 {
		t.Fatalf("summaries = %+v", summaries)
	}
	if summaries[0].Std != 0 {
		t.Errorf("std = %v, want 0", summaries[0].Std)
	}
	if summaries[0].Change != 0 {
		t.Errorf("change = %v, want 0", summaries[0].Change)
	}
}

// При дубле (фича, сессия) в таблицу попадает первое значение
func TestBuildTableFirstWins(t *testing.T) {
	table := BuildTable([]Row{
		{Feature: "X", Value: 1, Session: "a"},
		{Feature: "X", Value: 2, Session: "a"},
	})
	if v, ok := table.Cell("X", "a"); !ok || v != 1 {
		t.Errorf("cell = %v, %v", v, ok)
	}
}

func TestBuildTableSkipsMissing(t *testing.T) {
	table := BuildTable([]Row{
		{Feature: "X", Missing: true, Session: "a"},
		{Feature: "X", Value: 3, Session: "b"},
	})
	if _, ok := table.Cell("X", "a"); ok {
		t.Error("missing row produced a cell")
	}
	if len(table.Sessions) != 1 || table.Sessions[0] != "b" {
		t.Errorf("sessions = %v", table.Sessions)
	}
}

// Агрегатор по датированной раскладке: битые CSV пропускаются с
// предупреждением, остальные сессии попадают в тренд
func TestFetchTaskTrendDatedLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("2024-01-01_Rainbow passage_features.csv", "Feature,Value\nFundamental Freq (Hz),150.00\n")
	write("2024-02-01_Rainbow passage_features.csv", "Feature,Value\nFundamental Freq (Hz),160.00\n")
	write("2024-03-01_Rainbow passage_features.csv", "not,a,feature\ncsv\n")
	write("notes.txt", "ignored")

	trend, err := FetchTaskTrend(context.Background(), s, s.RootID())
	if err != nil {
		t.Fatalf("FetchTaskTrend: %v", err)
	}
	if len(trend.Warnings) != 1 {
		t.Errorf("warnings = %v", trend.Warnings)
	}
	if len(trend.Summaries) != 1 || trend.Summaries[0].Count != 2 {
		t.Fatalf("summaries = %+v", trend.Summaries)
	}
	if !almostEqual(trend.Summaries[0].Change, 10, 1e-9) {
		t.Errorf("change = %v", trend.Summaries[0].Change)
	}
}

// Агрегатор по раскладке session_*: CSV внутри подпапок, карта аудио
func TestFetchSessionFeatures(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, label := range []string{"20240101_090000", "20240201_090000"} {
		folderID, err := s.CreateFolder(ctx, s.RootID(), SessionFolderPrefix+label)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Upload(ctx, folderID, FeatureFilename, []byte("Feature,Value\nAudio duration,2.00\n")); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Upload(ctx, folderID, AudioFilename, []byte("RIFF")); err != nil {
			t.Fatal(err)
		}
	}

	rows, audio, warnings, err := FetchSessionFeatures(ctx, s, s.RootID())
	if err != nil {
		t.Fatalf("FetchSessionFeatures: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if len(audio) != 2 || audio["20240101_090000"] == "" {
		t.Errorf("audio map = %v", audio)
	}
}

func TestFetchTaskTrendEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	_, err = FetchTaskTrend(context.Background(), s, s.RootID())
	if !store.IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestEncodeTrendCSV(t *testing.T) {
	table := BuildTable([]Row{
		{Feature: "Jitter (local, %)", Value: 1.5, Session: "a"},
		{Feature: "Jitter (local, %)", Value: 2, Session: "b"},
		{Feature: "CPP (dB)", Value: 12, Session: "b"},
	})
	got := string(EncodeTrendCSV(table))
	want := "Feature,a,b\n\"Jitter (local, %)\",1.5,2\nCPP (dB),,12\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}
