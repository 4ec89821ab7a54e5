package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"habitd/internal/habit"
	"habitd/internal/models"

	"go.uber.org/zap"
)

// CreateUser inserts a user and seeds the four habits with default settings.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash, timezone string, bio habit.Biometrics, now time.Time) (models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, wrap("begin create user", err)
	}
	defer tx.Rollback()

	var height, weight, age any
	if bio.Validate() == nil {
		height, weight, age = bio.Height, bio.Weight, bio.Age
	} else {
		bio = habit.Biometrics{}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, timezone, height, weight, age, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		username, passwordHash, timezone, height, weight, age, formatTS(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, wrap("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, wrap("user id", err)
	}

	settings := habit.DefaultSettings(bio)
	targets, err := habit.ResolveAll(settings, bio, nil)
	if err != nil {
		return models.User{}, err
	}
	for _, slug := range habit.Slugs {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO habits (user_id, slug, target_value, target_unit, updated_at) VALUES (?, ?, ?, ?, ?)",
			id, slug, targets[slug], habit.MetaOf(slug).Unit, formatTS(now),
		)
		if err != nil {
			return models.User{}, wrap("insert habit", err)
		}
		habitID, err := res.LastInsertId()
		if err != nil {
			return models.User{}, wrap("habit id", err)
		}
		if err := insertSettings(ctx, tx, int(habitID), settings.Get(slug)); err != nil {
			return models.User{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.User{}, wrap("commit create user", err)
	}

	s.logger.Info("User registered", zap.Int64("user_id", id), zap.String("username", username))
	return models.User{
		ID:         int(id),
		Username:   username,
		Timezone:   timezone,
		Biometrics: bio,
		CreatedAt:  now,
	}, nil
}

const userColumns = "id, username, password_hash, timezone, height, weight, age, created_at"

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	var height, weight sql.NullFloat64
	var age sql.NullInt64
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Timezone, &height, &weight, &age, &created); err != nil {
		return models.User{}, err
	}
	if height.Valid && weight.Valid && age.Valid {
		u.Biometrics = habit.Biometrics{Height: height.Float64, Weight: weight.Float64, Age: int(age.Int64)}
	}
	if t, err := parseTS(created); err == nil {
		u.CreatedAt = t
	}
	return u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, habit.NewNotFoundError("user", username)
	}
	if err != nil {
		return models.User{}, wrap("user by username", err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id int) (models.User, error) {
	return userByID(ctx, s.db, id)
}

func userByID(ctx context.Context, q querier, id int) (models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, habit.NewNotFoundError("user", strconv.Itoa(id))
	}
	if err != nil {
		return models.User{}, wrap("user by id", err)
	}
	return u, nil
}

// UpdateBiometrics stores new biometrics together with the re-derived water
// settings and target in one transaction.
func (s *Store) UpdateBiometrics(ctx context.Context, userID int, bio habit.Biometrics, water habit.WaterSettings, target float64, now time.Time) error {
	if err := bio.Validate(); err != nil {
		return err
	}
	if err := water.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rolledBack("update biometrics", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE users SET height = ?, weight = ?, age = ? WHERE id = ?",
		bio.Height, bio.Weight, bio.Age, userID)
	if err != nil {
		return rolledBack("update biometrics", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return habit.NewNotFoundError("user", strconv.Itoa(userID))
	}

	rec, err := habitBySlug(ctx, tx, userID, habit.Water)
	if err != nil {
		return rolledBack("update biometrics", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE habits SET target_value = ?, updated_at = ? WHERE id = ?",
		target, formatTS(now), rec.ID); err != nil {
		return rolledBack("update biometrics", err)
	}
	if err := updateSettings(ctx, tx, rec.ID, water); err != nil {
		return rolledBack("update biometrics", err)
	}
	if err := tx.Commit(); err != nil {
		return rolledBack("commit biometrics", err)
	}

	s.logger.Debug("Biometrics updated",
		zap.Int("user_id", userID),
		zap.Int("recommended_target", water.RecommendedTarget),
	)
	return nil
}

func (s *Store) UpdateTimezone(ctx context.Context, userID int, timezone string) error {
	if _, err := time.LoadLocation(timezone); err != nil || timezone == "" {
		return habit.NewValidationError("timezone", "must be an IANA time zone name")
	}
	res, err := s.db.ExecContext(ctx, "UPDATE users SET timezone = ? WHERE id = ?", timezone, userID)
	if err != nil {
		return wrap("update timezone", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return habit.NewNotFoundError("user", strconv.Itoa(userID))
	}
	return nil
}
