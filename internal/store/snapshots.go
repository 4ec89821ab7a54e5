package store

import (
	"context"
	"time"

	"habitd/internal/habit"
)

// UpsertSnapshot records the latest completion figures for a day.
func (s *Store) UpsertSnapshot(ctx context.Context, userID int, snap habit.DailySnapshot, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_snapshots (user_id, day, total_habits, completed_habits, completion_percentage, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET
			total_habits = excluded.total_habits,
			completed_habits = excluded.completed_habits,
			completion_percentage = excluded.completion_percentage,
			updated_at = excluded.updated_at`,
		userID, string(snap.Date), snap.TotalHabits, snap.CompletedHabits, snap.CompletionPercentage, formatTS(now),
	)
	if err != nil {
		return wrap("upsert snapshot", err)
	}
	return nil
}

// ListSnapshots returns recorded days in [from, to], oldest first.
func (s *Store) ListSnapshots(ctx context.Context, userID int, from, to habit.Date) ([]habit.DailySnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, total_habits, completed_habits, completion_percentage
		FROM daily_snapshots
		WHERE user_id = ? AND day >= ? AND day <= ?
		ORDER BY day`,
		userID, string(from), string(to),
	)
	if err != nil {
		return nil, wrap("list snapshots", err)
	}
	defer rows.Close()

	out := []habit.DailySnapshot{}
	for rows.Next() {
		var snap habit.DailySnapshot
		var day string
		if err := rows.Scan(&day, &snap.TotalHabits, &snap.CompletedHabits, &snap.CompletionPercentage); err != nil {
			return nil, wrap("scan snapshot", err)
		}
		snap.Date = habit.Date(day)
		out = append(out, snap)
	}
	return out, rows.Err()
}
