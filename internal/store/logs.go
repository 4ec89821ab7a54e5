package store

import (
	"context"
	"database/sql"
	"time"

	"habitd/internal/habit"
)

const (
	DefaultLogLimit = 50
	MaxLogLimit     = 200
)

// InsertLog appends an entry to the ledger.
func (s *Store) InsertLog(ctx context.Context, userID, habitID int, l habit.Log, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO habit_logs (id, habit_id, user_id, value, notes, logged_at, entry_date, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		l.ID, habitID, userID, l.Value, l.Notes, formatTS(l.LoggedAt), string(l.EntryDate), formatTS(now),
	)
	if err != nil {
		return wrap("insert log", err)
	}
	return nil
}

const logSelect = `
	SELECT l.rowid, l.id, h.slug, l.value, l.notes, l.logged_at, l.entry_date
	FROM habit_logs l JOIN habits h ON h.id = l.habit_id`

func scanLogs(rows *sql.Rows) ([]habit.Log, error) {
	defer rows.Close()
	out := []habit.Log{}
	for rows.Next() {
		var l habit.Log
		var slug, loggedAt, day string
		var notes sql.NullString
		if err := rows.Scan(&l.Seq, &l.ID, &slug, &l.Value, &notes, &loggedAt, &day); err != nil {
			return nil, wrap("scan log", err)
		}
		t, err := parseTS(loggedAt)
		if err != nil {
			return nil, wrap("parse logged_at", err)
		}
		l.Habit = habit.Slug(slug)
		l.LoggedAt = t
		l.EntryDate = habit.Date(day)
		if notes.Valid {
			n := notes.String
			l.Notes = &n
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LogsForDay returns every entry of the user's day, newest first. Seq carries
// the insertion order.
func (s *Store) LogsForDay(ctx context.Context, userID int, day habit.Date) ([]habit.Log, error) {
	rows, err := s.db.QueryContext(ctx,
		logSelect+" WHERE l.user_id = ? AND l.entry_date = ? ORDER BY l.logged_at DESC, l.rowid DESC",
		userID, string(day))
	if err != nil {
		return nil, wrap("logs for day", err)
	}
	return scanLogs(rows)
}

// ListLogs returns one habit's entries newest first, optionally restricted to a day.
// limit is clamped to [1, MaxLogLimit] with DefaultLogLimit for zero.
func (s *Store) ListLogs(ctx context.Context, habitID int, day *habit.Date, limit int) ([]habit.Log, error) {
	switch {
	case limit <= 0:
		limit = DefaultLogLimit
	case limit > MaxLogLimit:
		limit = MaxLogLimit
	}

	query := logSelect + " WHERE l.habit_id = ?"
	args := []any{habitID}
	if day != nil {
		query += " AND l.entry_date = ?"
		args = append(args, string(*day))
	}
	query += " ORDER BY l.logged_at DESC, l.rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list logs", err)
	}
	return scanLogs(rows)
}
