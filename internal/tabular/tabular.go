package tabular

import "context"

// Spec names a table and its canonical column set. Loads always come back
// with exactly these columns, even when the underlying data is missing or
// unreadable.
type Spec struct {
	Name    string
	Columns []string
}

// Canonical table specs. The column order is part of the persisted format
// and of the CSV exports, so it never changes.
var (
	Members = Spec{
		Name:    "members",
		Columns: []string{"ID", "Name", "Email", "Mobile", "Membership", "Fee", "ImagePath"},
	}
	Attendance = Spec{
		Name:    "attendance",
		Columns: []string{"ID", "Name", "Date", "EntryTime", "ExitTime", "Status"},
	}
	DeletedMembers = Spec{
		Name:    "deleted_members",
		Columns: []string{"ID", "Name", "Email", "Mobile", "Membership", "Fee", "ImagePath"},
	}
)

// Table is an ordered sequence of rows under a fixed column set. All values
// are strings; callers own the typed mapping.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New returns an empty table with the spec's canonical columns.
func New(spec Spec) Table {
	return Table{Columns: append([]string(nil), spec.Columns...)}
}

// Append adds a row. Rows shorter than the column set are padded so a save
// never produces ragged output.
func (t *Table) Append(row []string) {
	for len(row) < len(t.Columns) {
		row = append(row, "")
	}
	t.Rows = append(t.Rows, row)
}

// Store is whole-table persistence: Load returns the full table, Save
// replaces it wholesale. There is no locking; concurrent savers race and the
// last write wins. Callers that need read-modify-write atomicity do not get
// it from this interface.
type Store interface {
	Load(ctx context.Context, spec Spec) (Table, error)
	Save(ctx context.Context, spec Spec, t Table) error
}
