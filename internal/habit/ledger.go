package habit

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Log is an immutable progress entry for one habit.
type Log struct {
	ID        string    `json:"id"`
	Habit     Slug      `json:"habitId"`
	Value     float64   `json:"value"`
	Notes     *string   `json:"notes"`
	LoggedAt  time.Time `json:"loggedAt"`
	EntryDate Date      `json:"entryDate"`
	// Seq is the recording order within the ledger.
	Seq int64 `json:"-"`
}

// NewLog validates input and builds a log entry. A nil loggedAt means now.
// The entry date is the calendar day of loggedAt in loc.
func NewLog(habit Slug, value float64, notes *string, loggedAt *time.Time, now time.Time, loc *time.Location) (Log, error) {
	if _, ok := Lookup(habit); !ok {
		return Log{}, NewValidationError("habitId", "unknown habit")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Log{}, NewValidationError("value", "must be a finite number")
	}
	if value <= 0 {
		return Log{}, NewValidationError("value", "must be greater than 0")
	}
	at := now
	if loggedAt != nil {
		if loggedAt.IsZero() {
			return Log{}, NewValidationError("loggedAt", "must be a valid timestamp")
		}
		at = *loggedAt
	}
	return Log{
		ID:        uuid.NewString(),
		Habit:     habit,
		Value:     value,
		Notes:     notes,
		LoggedAt:  at,
		EntryDate: DateOf(at, loc),
	}, nil
}

// ParseLoggedAt parses an RFC 3339 timestamp supplied by a client.
func ParseLoggedAt(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, NewValidationError("loggedAt", "must be an RFC 3339 timestamp")
	}
	return t, nil
}

// Ledger is an append-only list of log entries. Append returns a new ledger and
// never mutates the receiver.
type Ledger struct {
	loc     *time.Location
	entries []Log
}

// NewLedger holds entries in recording order. Entries without a Seq are
// numbered after the highest one given.
func NewLedger(loc *time.Location, entries ...Log) Ledger {
	if loc == nil {
		loc = time.UTC
	}
	out := append([]Log(nil), entries...)
	var last int64
	for _, e := range out {
		last = max(last, e.Seq)
	}
	for i := range out {
		if out[i].Seq == 0 {
			last++
			out[i].Seq = last
		}
	}
	return Ledger{loc: loc, entries: out}
}

// Append validates and records a new entry.
func (l Ledger) Append(habit Slug, value float64, notes *string, loggedAt *time.Time, now time.Time) (Ledger, Log, error) {
	entry, err := NewLog(habit, value, notes, loggedAt, now, l.location())
	if err != nil {
		return l, Log{}, err
	}
	for _, e := range l.entries {
		entry.Seq = max(entry.Seq, e.Seq)
	}
	entry.Seq++
	next := l
	next.entries = append(l.entries[:len(l.entries):len(l.entries)], entry)
	return next, entry, nil
}

// SumForDay totals the entries of habit whose entry date is day.
func (l Ledger) SumForDay(habit Slug, day Date) float64 {
	return SumLogs(l.ForDay(habit, day))
}

// ForDay returns the entries of habit on day, newest first.
func (l Ledger) ForDay(habit Slug, day Date) []Log {
	var out []Log
	for _, e := range l.entries {
		if e.Habit == habit && e.EntryDate == day {
			out = append(out, e)
		}
	}
	SortNewestFirst(out)
	return out
}

func (l Ledger) Len() int { return len(l.entries) }

// Find returns the entry with id.
func (l Ledger) Find(id string) (Log, bool) {
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Log{}, false
}

func (l Ledger) location() *time.Location {
	if l.loc == nil {
		return time.UTC
	}
	return l.loc
}

// SumLogs totals entry values. Values are added in ascending order so the
// result does not depend on the order entries were appended.
func SumLogs(logs []Log) float64 {
	values := make([]float64, len(logs))
	for i, e := range logs {
		values[i] = e.Value
	}
	sort.Float64s(values)
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// SortNewestFirst orders logs by loggedAt descending.
func SortNewestFirst(logs []Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].LoggedAt.After(logs[j].LoggedAt)
	})
}
