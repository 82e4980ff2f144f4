package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps each table as a CSV file (header row + data rows) in a
// single directory. A missing or unparsable file loads as an empty table
// with the canonical columns; it never fails the caller's operation.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(spec Spec) string {
	return filepath.Join(s.dir, spec.Name+".csv")
}

// Load reads the whole table. Corruption degrades to an empty table rather
// than an error: the original data format has no recovery story beyond
// starting over with the canonical schema.
func (s *FileStore) Load(_ context.Context, spec Spec) (Table, error) {
	f, err := os.Open(s.path(spec))
	if err != nil {
		return New(spec), nil
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil || len(records) == 0 {
		return New(spec), nil
	}

	header := records[0]
	if len(header) != len(spec.Columns) {
		return New(spec), nil
	}
	for i, col := range spec.Columns {
		if header[i] != col {
			return New(spec), nil
		}
	}

	t := New(spec)
	for _, rec := range records[1:] {
		t.Append(rec)
	}
	return t, nil
}

// Save replaces the table wholesale. The write goes through a temp file and
// rename so a crash mid-save cannot leave a half-written table, but two
// concurrent savers still race: last writer wins.
func (s *FileStore) Save(_ context.Context, spec Spec, t Table) error {
	tmp, err := os.CreateTemp(s.dir, spec.Name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", spec.Name, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(spec.Columns); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", spec.Name, err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("save %s: %w", spec.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", spec.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", spec.Name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(spec)); err != nil {
		return fmt.Errorf("save %s: %w", spec.Name, err)
	}
	return nil
}
