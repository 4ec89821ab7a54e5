package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"habitd/internal/habit"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrUsernameTaken is returned when registering an existing username.
var ErrUsernameTaken = errors.New("username already exists")

// Store persists users, habits, settings, logs and notifications in SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

func (s *Store) DB() *sql.DB { return s.db }

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Fixed-width UTC timestamps keep lexical and chronological order identical.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func parseNullTS(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTS(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// rolledBack wraps a failure inside a multi-step update. Validation and
// not-found errors pass through unchanged.
func rolledBack(op string, err error) error {
	var verr *habit.ValidationError
	var nerr *habit.NotFoundError
	if errors.As(err, &verr) || errors.As(err, &nerr) {
		return err
	}
	return &habit.ConflictError{Op: op, Err: err}
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
