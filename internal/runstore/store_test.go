package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"capstan/internal/config"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = filepath.Join(base, "workspace")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	return &cfg
}

func sampleRecord(runID string) *Record {
	return &Record{
		RunID:            runID,
		SourcePath:       "/audio/demo.wav",
		SourceSHA256:     "deadbeef",
		DurationSeconds:  40,
		BlockCount:       2,
		WordCount:        10,
		Model:            "whisper-1",
		ChunkCalls:       2,
		SegmentCalls:     1,
		AudioSecondsSent: 47,
		WaveformStrategy: "pcm",
		ElapsedSeconds:   1.25,
		ResultJSON:       `{"fullTranscript":"hello"}`,
	}
}

func TestSaveAndGet(t *testing.T) {
	store, err := Open(newTestConfig(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	rec := sampleRecord("0b5c9d9e-1111-2222-3333-444455556666")
	if err := store.SaveRun(context.Background(), rec); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be assigned")
	}

	got, err := store.GetByRunID(context.Background(), rec.RunID)
	if err != nil {
		t.Fatalf("GetByRunID: %v", err)
	}
	if got.SourcePath != rec.SourcePath || got.WordCount != 10 || got.Model != "whisper-1" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.ResultJSON != rec.ResultJSON {
		t.Fatalf("result json mismatch: %q", got.ResultJSON)
	}
}

func TestGetByRunIDPrefix(t *testing.T) {
	store, err := Open(newTestConfig(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if err := store.SaveRun(context.Background(), sampleRecord("aaaa1111-0000-0000-0000-000000000000")); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := store.SaveRun(context.Background(), sampleRecord("aaab2222-0000-0000-0000-000000000000")); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := store.GetByRunID(context.Background(), "aaaa")
	if err != nil {
		t.Fatalf("GetByRunID prefix: %v", err)
	}
	if got.RunID != "aaaa1111-0000-0000-0000-000000000000" {
		t.Fatalf("unexpected match: %s", got.RunID)
	}

	if _, err := store.GetByRunID(context.Background(), "aaa"); err == nil {
		t.Fatal("expected ambiguous prefix to error")
	}
	if _, err := store.GetByRunID(context.Background(), "zzzz"); err == nil {
		t.Fatal("expected missing run to error")
	}
}

func TestListNewestFirst(t *testing.T) {
	store, err := Open(newTestConfig(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	for _, id := range []string{"run-one", "run-two", "run-three"} {
		if err := store.SaveRun(context.Background(), sampleRecord(id)); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}

	records, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].RunID != "run-three" {
		t.Fatalf("expected newest first, got %s", records[0].RunID)
	}

	limited, err := store.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 records, got %d", len(limited))
	}
}

func TestClear(t *testing.T) {
	store, err := Open(newTestConfig(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if err := store.SaveRun(context.Background(), sampleRecord("to-clear")); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	count, err := store.Clear(context.Background())
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 cleared row, got %d", count)
	}
	records, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty ledger, got %d rows", len(records))
	}
}

func TestOpenRejectsSecondProcess(t *testing.T) {
	cfg := newTestConfig(t)
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, err := Open(cfg); !errors.Is(err, ErrWorkspaceLocked) {
		t.Fatalf("expected ErrWorkspaceLocked, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := newTestConfig(t)
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.SaveRun(context.Background(), sampleRecord("persisted")); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetByRunID(context.Background(), "persisted"); err != nil {
		t.Fatalf("GetByRunID after reopen: %v", err)
	}
}
