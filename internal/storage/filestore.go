// Package storage persists execution and analysis records to durable media:
// one JSON file per record plus an append-only metadata index. The pipeline
// never depends on persistence succeeding; failures surface as logged
// warnings from the async writer or as errors from explicit save calls.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"scriptflow/internal/analysis"
	"scriptflow/internal/executor"
)

// IndexEntry is one line of the append-only index file.
type IndexEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"` // result or analysis
	Path      string    `json:"path"`
	SavedAt   time.Time `json:"saved_at"`
	SizeBytes int       `json:"size_bytes"`
}

// FileStore writes records under a base directory:
//
//	<dir>/results/<id>.json
//	<dir>/analyses/<id>.json
//	<dir>/index.jsonl
type FileStore struct {
	dir string
	mu  sync.Mutex // serializes index appends
}

func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{"results", "analyses"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the base directory.
func (s *FileStore) Dir() string { return s.dir }

// SaveResult persists an execution record.
func (s *FileStore) SaveResult(res *executor.Result) error {
	return s.save(res.ID, "result", filepath.Join("results", res.ID+".json"), res)
}

// SaveAnalysis persists an analysis record.
func (s *FileStore) SaveAnalysis(rec *analysis.Record) error {
	return s.save(rec.ID, "analysis", filepath.Join("analyses", rec.ID+".json"), rec)
}

func (s *FileStore) save(id, kind, rel string, record any) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", kind, id, err)
	}

	path := filepath.Join(s.dir, rel)
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- records are operator-readable artifacts
		return fmt.Errorf("writing %s %s: %w", kind, id, err)
	}

	return s.appendIndex(IndexEntry{
		ID:        id,
		Kind:      kind,
		Path:      rel,
		SavedAt:   time.Now(),
		SizeBytes: len(data),
	})
}

// appendIndex adds one JSONL line to the index file.
func (s *FileStore) appendIndex(entry IndexEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding index entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, "index.jsonl"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G302,G304 -- index lives under the configured storage dir
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending index entry: %w", err)
	}
	return nil
}

// LoadResult reads a persisted execution record back.
func (s *FileStore) LoadResult(id string) (*executor.Result, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "results", id+".json")) // #nosec G304 -- id is engine-generated
	if err != nil {
		return nil, fmt.Errorf("reading result %s: %w", id, err)
	}
	var res executor.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decoding result %s: %w", id, err)
	}
	return &res, nil
}

// Index returns all index entries, oldest first. A missing index file yields
// an empty slice.
func (s *FileStore) Index() ([]IndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "index.jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index: %w", err)
	}

	var entries []IndexEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var entry IndexEntry
		if err := dec.Decode(&entry); err != nil {
			return entries, fmt.Errorf("decoding index entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
