package attendance

import (
	"context"
	"errors"
	"time"

	"gymtrack/internal/faceclient"
	"gymtrack/internal/member"
	"gymtrack/internal/tabular"
)

var (
	// ErrNoMembers rejects an attendance attempt against an empty registry.
	ErrNoMembers = errors.New("no members registered")
	// ErrNoMatch reports that no member's reference photo matched the probe.
	ErrNoMatch = errors.New("no matching member found")
	// ErrAlreadyMarked rejects a second entry for the same member and day.
	ErrAlreadyMarked = errors.New("entry already marked today")
	// ErrNoOpenRecord rejects an exit with no open entry for today.
	ErrNoOpenRecord = errors.New("no open entry found for today")
)

// Verifier attempts one face verification. It never fails outright: verifier
// errors come back degraded to a no-match result.
type Verifier interface {
	TryVerify(ctx context.Context, probePath, referencePath string) faceclient.Match
}

// MemberSource enumerates the registered members. Enumeration order matters:
// it is the tie-break order of the best-match scan.
type MemberSource interface {
	List(ctx context.Context) ([]member.Member, error)
}

// ProgressFunc is called after each candidate completes, with the number of
// candidates scanned so far and the total.
type ProgressFunc func(done, total int)

// Engine records entry and exit events. Identification is a linear scan over
// every member's reference photo: O(members) verification calls per attempt,
// no caching, no early exit.
type Engine struct {
	members  MemberSource
	store    tabular.Store
	verifier Verifier
	now      func() time.Time
}

// NewEngine builds an engine over the given collaborators.
func NewEngine(members MemberSource, store tabular.Store, verifier Verifier) *Engine {
	return &Engine{members: members, store: store, verifier: verifier, now: time.Now}
}

// identify scans all members and returns the one whose reference photo
// matched the probe at the strictly smallest distance. The scan is seeded
// with the worst-case sentinel, so only a matched candidate strictly below
// it can win; ties keep the earlier-enumerated candidate.
func (e *Engine) identify(ctx context.Context, probePath string, progress ProgressFunc) (member.Member, error) {
	members, err := e.members.List(ctx)
	if err != nil {
		return member.Member{}, err
	}
	if len(members) == 0 {
		return member.Member{}, ErrNoMembers
	}

	best := faceclient.WorstDistance
	matchedIdx := -1
	for i, m := range members {
		res := e.verifier.TryVerify(ctx, probePath, m.ImagePath)
		if res.Matched && res.Distance < best {
			best = res.Distance
			matchedIdx = i
		}
		if progress != nil {
			progress(i+1, len(members))
		}
	}
	if matchedIdx < 0 {
		return member.Member{}, ErrNoMatch
	}
	return members[matchedIdx], nil
}

// MarkEntry identifies the member on the probe photo and opens today's
// attendance record. A member already marked today is rejected without a
// second record.
func (e *Engine) MarkEntry(ctx context.Context, probePath string, progress ProgressFunc) (Record, error) {
	m, err := e.identify(ctx, probePath, progress)
	if err != nil {
		return Record{}, err
	}

	t, err := e.store.Load(ctx, tabular.Attendance)
	if err != nil {
		return Record{}, err
	}
	records := recordsFromTable(t)

	now := e.now()
	today := now.Format(DateLayout)
	for _, r := range records {
		if r.MemberID == m.ID && r.Date == today {
			return Record{}, ErrAlreadyMarked
		}
	}

	rec := Record{
		MemberID:  m.ID,
		Name:      m.Name,
		Date:      today,
		EntryTime: now.Format(TimeLayout),
		Status:    StatusPresent,
	}
	records = append(records, rec)
	if err := e.store.Save(ctx, tabular.Attendance, tableFromRecords(records)); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// MarkExit identifies the member on the probe photo and closes the first
// open record for (member, today) by filling the exit time and flipping the
// status. With no open record the attempt fails and nothing is written.
func (e *Engine) MarkExit(ctx context.Context, probePath string, progress ProgressFunc) (Record, error) {
	m, err := e.identify(ctx, probePath, progress)
	if err != nil {
		return Record{}, err
	}

	t, err := e.store.Load(ctx, tabular.Attendance)
	if err != nil {
		return Record{}, err
	}
	records := recordsFromTable(t)

	now := e.now()
	today := now.Format(DateLayout)
	for i := range records {
		if records[i].MemberID == m.ID && records[i].Date == today && records[i].Open() {
			records[i].ExitTime = now.Format(TimeLayout)
			records[i].Status = StatusExited
			if err := e.store.Save(ctx, tabular.Attendance, tableFromRecords(records)); err != nil {
				return Record{}, err
			}
			return records[i], nil
		}
	}
	return Record{}, ErrNoOpenRecord
}

// List returns all attendance records in table order.
func (e *Engine) List(ctx context.Context) ([]Record, error) {
	t, err := e.store.Load(ctx, tabular.Attendance)
	if err != nil {
		return nil, err
	}
	return recordsFromTable(t), nil
}

// Export returns the attendance table for download, same shape as persisted.
func (e *Engine) Export(ctx context.Context) (tabular.Table, error) {
	return e.store.Load(ctx, tabular.Attendance)
}

// Reset truncates the attendance table to its header. Irreversible.
func (e *Engine) Reset(ctx context.Context) error {
	return e.store.Save(ctx, tabular.Attendance, tabular.New(tabular.Attendance))
}
