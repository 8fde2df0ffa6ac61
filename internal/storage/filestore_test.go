package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"scriptflow/internal/analysis"
	"scriptflow/internal/executor"
)

func testResult(id string) *executor.Result {
	exit := 0
	now := time.Now().UTC().Truncate(time.Second)
	return &executor.Result{
		ID:        id,
		Command:   "echo hi",
		StartTime: now,
		EndTime:   now.Add(time.Second),
		Duration:  time.Second,
		ExitCode:  &exit,
		Stdout:    "hi\n",
		Success:   true,
	}
}

func TestSaveAndLoadResult(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	res := testResult("script_001")
	if err := fs.SaveResult(res); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	loaded, err := fs.LoadResult("script_001")
	if err != nil {
		t.Fatalf("LoadResult failed: %v", err)
	}
	if loaded.ID != res.ID || loaded.Command != res.Command {
		t.Errorf("loaded record differs: %+v", loaded)
	}
	if loaded.ExitCode == nil || *loaded.ExitCode != 0 {
		t.Errorf("exit code not preserved: %v", loaded.ExitCode)
	}
	if !loaded.Success {
		t.Error("success flag not preserved")
	}
}

func TestLoadMissingResult(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if _, err := fs.LoadResult("script_999"); err == nil {
		t.Error("expected error for missing record")
	}
}

func TestSaveAnalysis(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	rec := &analysis.Record{
		ID:             "analysis_001",
		ScriptResultID: "script_001",
		AnalysisType:   analysis.TypeBasic,
		Timestamp:      time.Now(),
		Summary:        "fine",
	}
	if err := fs.SaveAnalysis(rec); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "analyses", "analysis_001.json")); err != nil {
		t.Errorf("analysis file missing: %v", err)
	}
}

func TestIndexAppendsInOrder(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := fs.SaveResult(testResult("script_001")); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	if err := fs.SaveResult(testResult("script_002")); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	if err := fs.SaveAnalysis(&analysis.Record{ID: "analysis_001"}); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}

	entries, err := fs.Index()
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 index entries, got %d", len(entries))
	}
	if entries[0].ID != "script_001" || entries[0].Kind != "result" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[2].ID != "analysis_001" || entries[2].Kind != "analysis" {
		t.Errorf("unexpected last entry: %+v", entries[2])
	}
	for _, e := range entries {
		if e.SizeBytes <= 0 {
			t.Errorf("entry %s has no size", e.ID)
		}
		if e.Path == "" {
			t.Errorf("entry %s has no path", e.ID)
		}
	}
}

func TestIndexMissingFile(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	entries, err := fs.Index()
	if err != nil {
		t.Fatalf("missing index must not error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty index, got %v", entries)
	}
}

func TestWriterPersistsAsync(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	w := NewWriter(fs, 10)
	w.Start()

	w.Save(testResult("script_001"))
	w.Save(testResult("script_002"))
	w.Flush(5 * time.Second)

	for _, id := range []string{"script_001", "script_002"} {
		if _, err := fs.LoadResult(id); err != nil {
			t.Errorf("record %s not persisted after flush: %v", id, err)
		}
	}
}

func TestWriterDropsWhenFull(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	// Not started: the buffer fills and further saves must not block.
	w := NewWriter(fs, 1)
	done := make(chan struct{})
	go func() {
		w.Save(testResult("script_001"))
		w.Save(testResult("script_002"))
		w.Save(testResult("script_003"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Save blocked on a full buffer")
	}
}
