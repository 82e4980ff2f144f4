package attendance

import (
	"strconv"

	"gymtrack/internal/tabular"
)

// Record statuses.
const (
	StatusPresent = "Present"
	StatusExited  = "Exited"
)

// Timestamp layouts used in the attendance table.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Record is one attendance session, keyed by (member, date). Name is a
// denormalized copy taken at entry time; later member-name edits do not
// touch it. ExitTime stays empty while the record is open.
type Record struct {
	MemberID  int    `json:"member_id"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	EntryTime string `json:"entry_time"`
	ExitTime  string `json:"exit_time"`
	Status    string `json:"status"`
}

// Open reports whether the record has no exit time yet.
func (r Record) Open() bool { return r.ExitTime == "" }

func (r Record) row() []string {
	return []string{strconv.Itoa(r.MemberID), r.Name, r.Date, r.EntryTime, r.ExitTime, r.Status}
}

func fromRow(row []string) (Record, bool) {
	if len(row) < len(tabular.Attendance.Columns) {
		return Record{}, false
	}
	id, err := strconv.Atoi(row[0])
	if err != nil || id <= 0 {
		return Record{}, false
	}
	return Record{
		MemberID:  id,
		Name:      row[1],
		Date:      row[2],
		EntryTime: row[3],
		ExitTime:  row[4],
		Status:    row[5],
	}, true
}

func recordsFromTable(t tabular.Table) []Record {
	out := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		if r, ok := fromRow(row); ok {
			out = append(out, r)
		}
	}
	return out
}

func tableFromRecords(records []Record) tabular.Table {
	t := tabular.New(tabular.Attendance)
	for _, r := range records {
		t.Append(r.row())
	}
	return t
}
