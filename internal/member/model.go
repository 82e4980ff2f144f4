package member

import (
	"strconv"

	"gymtrack/internal/tabular"
)

// Membership plans offered by the gym.
const (
	Monthly   = "Monthly"
	Quarterly = "Quarterly"
	Yearly    = "Yearly"
)

// ValidMembership reports whether m is one of the offered plans.
func ValidMembership(m string) bool {
	return m == Monthly || m == Quarterly || m == Yearly
}

// Member is a registered gym member. ID and ImagePath are assigned at
// registration and never change; the remaining fields are editable.
type Member struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Mobile     string  `json:"mobile"`
	Membership string  `json:"membership"`
	Fee        float64 `json:"fee"`
	ImagePath  string  `json:"image_path"`
}

// row maps a member onto the canonical members column order.
func (m Member) row() []string {
	return []string{
		strconv.Itoa(m.ID),
		m.Name,
		m.Email,
		m.Mobile,
		m.Membership,
		strconv.FormatFloat(m.Fee, 'f', -1, 64),
		m.ImagePath,
	}
}

// fromRow parses one table row. Rows that do not carry a numeric ID are
// reported as not ok and skipped by callers; the store already guarantees
// the column count.
func fromRow(row []string) (Member, bool) {
	if len(row) < len(tabular.Members.Columns) {
		return Member{}, false
	}
	id, err := strconv.Atoi(row[0])
	if err != nil || id <= 0 {
		return Member{}, false
	}
	fee, err := strconv.ParseFloat(row[5], 64)
	if err != nil {
		fee = 0
	}
	return Member{
		ID:         id,
		Name:       row[1],
		Email:      row[2],
		Mobile:     row[3],
		Membership: row[4],
		Fee:        fee,
		ImagePath:  row[6],
	}, true
}

func membersFromTable(t tabular.Table) []Member {
	out := make([]Member, 0, len(t.Rows))
	for _, row := range t.Rows {
		if m, ok := fromRow(row); ok {
			out = append(out, m)
		}
	}
	return out
}

func tableFromMembers(members []Member) tabular.Table {
	t := tabular.New(tabular.Members)
	for _, m := range members {
		t.Append(m.row())
	}
	return t
}
