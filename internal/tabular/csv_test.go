package tabular

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s, dir
}

func TestFileStore_MissingFileLoadsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := s.Load(context.Background(), Members)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(got.Rows))
	}
	if len(got.Columns) != len(Members.Columns) {
		t.Errorf("expected %d columns, got %d", len(Members.Columns), len(got.Columns))
	}
	for i, col := range Members.Columns {
		if got.Columns[i] != col {
			t.Errorf("column %d: expected %q, got %q", i, col, got.Columns[i])
		}
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	in := New(Members)
	in.Append([]string{"1", "Alice", "alice@example.com", "555-0101", "Monthly", "50", "member_images/1_Alice.jpg"})
	in.Append([]string{"2", "Bob, Jr.", "bob@example.com", "555-0102", "Yearly", "400.5", "member_images/2_Bob__Jr_.jpg"})

	if err := s.Save(ctx, Members, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, Members)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(got.Rows) != len(in.Rows) {
		t.Fatalf("expected %d rows, got %d", len(in.Rows), len(got.Rows))
	}
	for i, row := range in.Rows {
		for j, v := range row {
			if got.Rows[i][j] != v {
				t.Errorf("row %d col %d: expected %q, got %q", i, j, v, got.Rows[i][j])
			}
		}
	}
}

func TestFileStore_SaveReplacesWholeTable(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first := New(Attendance)
	first.Append([]string{"1", "Alice", "2025-01-02", "09:00:00", "", "Present"})
	if err := s.Save(ctx, Attendance, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := New(Attendance)
	second.Append([]string{"2", "Bob", "2025-01-03", "10:00:00", "", "Present"})
	if err := s.Save(ctx, Attendance, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, Attendance)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Rows) != 1 {
		t.Fatalf("expected 1 row after replace, got %d", len(got.Rows))
	}
	if got.Rows[0][1] != "Bob" {
		t.Errorf("expected row for Bob, got %q", got.Rows[0][1])
	}
}

func TestFileStore_CorruptFileLoadsEmpty(t *testing.T) {
	s, dir := newTestStore(t)

	path := filepath.Join(dir, "members.csv")
	if err := os.WriteFile(path, []byte("ID,Name\nbroken \"quote,line\n"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	got, err := s.Load(context.Background(), Members)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Rows) != 0 {
		t.Errorf("expected corrupt file to load as empty, got %d rows", len(got.Rows))
	}
	if len(got.Columns) != len(Members.Columns) {
		t.Errorf("expected canonical columns, got %v", got.Columns)
	}
}

func TestFileStore_ForeignHeaderLoadsEmpty(t *testing.T) {
	s, dir := newTestStore(t)

	path := filepath.Join(dir, "members.csv")
	if err := os.WriteFile(path, []byte("A,B,C\n1,2,3\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := s.Load(context.Background(), Members)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Rows) != 0 {
		t.Errorf("expected mismatched header to load as empty, got %d rows", len(got.Rows))
	}
}

func TestFileStore_EmptySavePreservesHeader(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, DeletedMembers, New(DeletedMembers)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "deleted_members.csv"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected header row in saved file")
	}

	got, err := s.Load(ctx, DeletedMembers)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Rows) != 0 {
		t.Errorf("expected 0 rows, got %d", len(got.Rows))
	}
}

func TestTable_AppendPadsShortRows(t *testing.T) {
	tab := New(Attendance)
	tab.Append([]string{"1", "Alice", "2025-01-02", "09:00:00"})

	if len(tab.Rows[0]) != len(Attendance.Columns) {
		t.Fatalf("expected padded row of %d fields, got %d", len(Attendance.Columns), len(tab.Rows[0]))
	}
	if tab.Rows[0][4] != "" || tab.Rows[0][5] != "" {
		t.Errorf("expected padding to be empty strings, got %v", tab.Rows[0])
	}
}
