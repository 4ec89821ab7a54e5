package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"habitd/internal/habit"

	"go.uber.org/zap"
)

const notificationColumns = "id, habit_slug, type, title, message, day, scheduled_for, read, read_at, created_at"

func scanNotification(row rowScanner) (habit.Notification, error) {
	var n habit.Notification
	var slug, typ, day, created string
	var scheduled, readAt sql.NullString
	if err := row.Scan(&n.ID, &slug, &typ, &n.Title, &n.Message, &day, &scheduled, &n.Read, &readAt, &created); err != nil {
		return habit.Notification{}, err
	}
	n.Habit = habit.Slug(slug)
	n.Type = habit.NotificationType(typ)
	n.Date = habit.Date(day)
	var err error
	if n.ScheduledFor, err = parseNullTS(scheduled); err != nil {
		return habit.Notification{}, err
	}
	if n.ReadAt, err = parseNullTS(readAt); err != nil {
		return habit.Notification{}, err
	}
	if n.CreatedAt, err = parseTS(created); err != nil {
		return habit.Notification{}, err
	}
	return n, nil
}

func queryNotifications(ctx context.Context, q querier, query string, args ...any) ([]habit.Notification, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("query notifications", err)
	}
	defer rows.Close()
	out := []habit.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, wrap("scan notification", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func insertNotification(ctx context.Context, q querier, userID int, n habit.Notification) (sql.Result, error) {
	verb := "INSERT"
	if n.Type == habit.TypeAchievement {
		verb = "INSERT OR IGNORE"
	}
	var scheduled, readAt any
	if n.ScheduledFor != nil {
		scheduled = formatTS(*n.ScheduledFor)
	}
	if n.ReadAt != nil {
		readAt = formatTS(*n.ReadAt)
	}
	return q.ExecContext(ctx,
		verb+" INTO notifications (id, user_id, habit_slug, type, title, message, day, scheduled_for, read, read_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		n.ID, userID, string(n.Habit), string(n.Type), n.Title, n.Message, string(n.Date), scheduled, n.Read, readAt, formatTS(n.CreatedAt),
	)
}

// SyncReminders replaces the stored reminders of day with next. Reminders whose
// (habit, scheduled minute) already existed keep their id and read state.
func (s *Store) SyncReminders(ctx context.Context, userID int, day habit.Date, next []habit.Reminder, now time.Time) ([]habit.Reminder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("begin sync reminders", err)
	}
	defer tx.Rollback()

	stored, err := queryNotifications(ctx, tx,
		"SELECT "+notificationColumns+" FROM notifications WHERE user_id = ? AND day = ? AND type = ?",
		userID, string(day), string(habit.TypeReminder))
	if err != nil {
		return nil, err
	}
	prev := make([]habit.Reminder, len(stored))
	readAt := make(map[string]*time.Time, len(stored))
	for i, n := range stored {
		prev[i] = n.AsReminder()
		readAt[n.ID] = n.ReadAt
	}

	reconciled := habit.Reconcile(prev, next)

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM notifications WHERE user_id = ? AND day = ? AND type = ?",
		userID, string(day), string(habit.TypeReminder)); err != nil {
		return nil, wrap("delete reminders", err)
	}
	for _, r := range reconciled {
		n := habit.ReminderNotification(r, day, now)
		n.ReadAt = readAt[r.ID]
		if _, err := insertNotification(ctx, tx, userID, n); err != nil {
			return nil, wrap("insert reminder", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap("commit reminders", err)
	}
	return reconciled, nil
}

// InsertAchievement stores n unless the habit already has an achievement that day.
// It reports whether a row was written.
func (s *Store) InsertAchievement(ctx context.Context, userID int, n habit.Notification) (bool, error) {
	res, err := insertNotification(ctx, s.db, userID, n)
	if err != nil {
		return false, wrap("insert achievement", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		s.logger.Debug("Achievement already recorded",
			zap.Int("user_id", userID),
			zap.String("habit", string(n.Habit)),
			zap.String("day", string(n.Date)),
		)
	}
	return affected > 0, nil
}

// NotificationsForDay returns the user's notifications of day ordered by time.
func (s *Store) NotificationsForDay(ctx context.Context, userID int, day habit.Date) ([]habit.Notification, error) {
	return queryNotifications(ctx, s.db,
		"SELECT "+notificationColumns+" FROM notifications WHERE user_id = ? AND day = ? ORDER BY COALESCE(scheduled_for, created_at), created_at",
		userID, string(day))
}

// NotificationFilter narrows ListNotifications.
type NotificationFilter struct {
	IncludeRead bool
	Type        habit.NotificationType
	Day         habit.Date
	Limit       int
}

// ListNotifications returns notifications newest first.
func (s *Store) ListNotifications(ctx context.Context, userID int, f NotificationFilter) ([]habit.Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notifications WHERE user_id = ?"
	args := []any{userID}
	if !f.IncludeRead {
		query += " AND read = 0"
	}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if f.Day != "" {
		query += " AND day = ?"
		args = append(args, string(f.Day))
	}
	limit := f.Limit
	if limit <= 0 || limit > MaxLogLimit {
		limit = MaxLogLimit
	}
	query += " ORDER BY COALESCE(scheduled_for, created_at) DESC, created_at DESC LIMIT ?"
	args = append(args, limit)
	return queryNotifications(ctx, s.db, query, args...)
}

// MarkNotificationRead flags a notification as read. Marking an already read
// notification keeps its original read time.
func (s *Store) MarkNotificationRead(ctx context.Context, userID int, id string, now time.Time) (time.Time, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, wrap("begin mark read", err)
	}
	defer tx.Rollback()

	var read bool
	var readAt sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT read, read_at FROM notifications WHERE id = ? AND user_id = ?", id, userID).Scan(&read, &readAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, habit.NewNotFoundError("notification", id)
	}
	if err != nil {
		return time.Time{}, wrap("find notification", err)
	}
	if read {
		if t, err := parseNullTS(readAt); err == nil && t != nil {
			return *t, nil
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE notifications SET read = 1, read_at = ? WHERE id = ? AND user_id = ?",
		formatTS(now), id, userID); err != nil {
		return time.Time{}, wrap("mark read", err)
	}
	if err := tx.Commit(); err != nil {
		return time.Time{}, wrap("commit mark read", err)
	}
	return now.UTC(), nil
}
