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

const habitColumns = "id, user_id, slug, target_value, target_unit, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var slug, updated string
	if err := row.Scan(&h.ID, &h.UserID, &slug, &h.TargetValue, &h.TargetUnit, &updated); err != nil {
		return models.Habit{}, err
	}
	h.Slug = habit.Slug(slug)
	if t, err := parseTS(updated); err == nil {
		h.UpdatedAt = t
	}
	return h, nil
}

// Habits returns the user's habits in catalog order.
func (s *Store) Habits(ctx context.Context, userID int) ([]models.Habit, error) {
	return habitsFor(ctx, s.db, userID)
}

func habitsFor(ctx context.Context, q querier, userID int) ([]models.Habit, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+habitColumns+" FROM habits WHERE user_id = ?", userID)
	if err != nil {
		return nil, wrap("list habits", err)
	}
	bySlug := make(map[habit.Slug]models.Habit, len(habit.Slugs))
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			rows.Close()
			return nil, wrap("scan habit", err)
		}
		bySlug[h.Slug] = h
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Habit, 0, len(bySlug))
	for _, slug := range habit.Slugs {
		if h, ok := bySlug[slug]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// ResolveHabit finds one of the user's habits by numeric id or by slug.
func (s *Store) ResolveHabit(ctx context.Context, userID int, ref string) (models.Habit, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		h, err := scanHabit(s.db.QueryRowContext(ctx,
			"SELECT "+habitColumns+" FROM habits WHERE id = ? AND user_id = ?", id, userID))
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, habit.NewNotFoundError("habit", ref)
		}
		if err != nil {
			return models.Habit{}, wrap("habit by id", err)
		}
		return h, nil
	}
	if _, ok := habit.Lookup(habit.Slug(ref)); !ok {
		return models.Habit{}, habit.NewNotFoundError("habit", ref)
	}
	return habitBySlug(ctx, s.db, userID, habit.Slug(ref))
}

func habitBySlug(ctx context.Context, q querier, userID int, slug habit.Slug) (models.Habit, error) {
	h, err := scanHabit(q.QueryRowContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE user_id = ? AND slug = ?", userID, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, habit.NewNotFoundError("habit", string(slug))
	}
	if err != nil {
		return models.Habit{}, wrap("habit by slug", err)
	}
	return h, nil
}

// Profile is everything needed to recompute a user's dashboard.
type Profile struct {
	Habits   []models.Habit
	Settings habit.AllSettings
	Targets  habit.Targets
}

// HabitFor returns the parent row for slug.
func (p Profile) HabitFor(slug habit.Slug) (models.Habit, bool) {
	for _, h := range p.Habits {
		if h.Slug == slug {
			return h, true
		}
	}
	return models.Habit{}, false
}

// LoadProfile reads every habit with its settings variant and stored target.
func (s *Store) LoadProfile(ctx context.Context, userID int) (Profile, error) {
	habits, err := habitsFor(ctx, s.db, userID)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{Habits: habits, Targets: make(habit.Targets, len(habits))}
	for _, h := range habits {
		st, err := loadSettings(ctx, s.db, h)
		if err != nil {
			return Profile{}, err
		}
		p.Settings = p.Settings.With(st)
		p.Targets[h.Slug] = h.TargetValue
	}
	if len(habits) != len(habit.Slugs) {
		return Profile{}, habit.NewNotFoundError("habits", strconv.Itoa(userID))
	}
	return p, nil
}

func loadSettings(ctx context.Context, q querier, h models.Habit) (habit.Settings, error) {
	var err error
	switch h.Slug {
	case habit.Water:
		var w habit.WaterSettings
		var custom sql.NullInt64
		err = q.QueryRowContext(ctx,
			"SELECT reminder_interval_minutes, use_recommended_target, custom_target, recommended_target FROM water_settings WHERE habit_id = ?",
			h.ID).Scan(&w.ReminderIntervalMinutes, &w.UseRecommendedTarget, &custom, &w.RecommendedTarget)
		if custom.Valid {
			v := int(custom.Int64)
			w.CustomTarget = &v
		}
		if err == nil {
			return w, nil
		}
	case habit.Sleep:
		var sl habit.SleepSettings
		var override sql.NullFloat64
		err = q.QueryRowContext(ctx,
			"SELECT bed_time, wake_time, reminder_enabled, reminder_advance_minutes, target_override FROM sleep_settings WHERE habit_id = ?",
			h.ID).Scan(&sl.BedTime, &sl.WakeTime, &sl.ReminderEnabled, &sl.ReminderAdvanceMinutes, &override)
		if override.Valid {
			v := override.Float64
			sl.TargetOverride = &v
		}
		if err == nil {
			return sl, nil
		}
	case habit.Exercise:
		var e habit.ExerciseSettings
		err = q.QueryRowContext(ctx,
			"SELECT daily_goal_minutes, reminder_enabled, reminder_time FROM exercise_settings WHERE habit_id = ?",
			h.ID).Scan(&e.DailyGoalMinutes, &e.ReminderEnabled, &e.ReminderTime)
		if err == nil {
			return e, nil
		}
	case habit.Nutrition:
		return loadNutrition(ctx, q, h.ID)
	default:
		return nil, habit.NewNotFoundError("habit", string(h.Slug))
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, habit.NewNotFoundError("settings", string(h.Slug))
	}
	return nil, wrap("load settings", err)
}

func loadNutrition(ctx context.Context, q querier, habitID int) (habit.Settings, error) {
	var n habit.NutritionSettings
	err := q.QueryRowContext(ctx,
		"SELECT reminders_enabled FROM nutrition_settings WHERE habit_id = ?", habitID).Scan(&n.RemindersEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, habit.NewNotFoundError("settings", string(habit.Nutrition))
	}
	if err != nil {
		return nil, wrap("load nutrition settings", err)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT meal_id, label, time, enabled FROM nutrition_meals WHERE habit_id = ? ORDER BY position", habitID)
	if err != nil {
		return nil, wrap("load meals", err)
	}
	defer rows.Close()
	n.Meals = []habit.Meal{}
	for rows.Next() {
		var m habit.Meal
		if err := rows.Scan(&m.ID, &m.Label, &m.Time, &m.Enabled); err != nil {
			return nil, wrap("scan meal", err)
		}
		n.Meals = append(n.Meals, m)
	}
	return n, rows.Err()
}

func insertSettings(ctx context.Context, q querier, habitID int, st habit.Settings) error {
	var err error
	switch v := st.(type) {
	case habit.WaterSettings:
		_, err = q.ExecContext(ctx,
			"INSERT INTO water_settings (habit_id, reminder_interval_minutes, use_recommended_target, custom_target, recommended_target) VALUES (?, ?, ?, ?, ?)",
			habitID, v.ReminderIntervalMinutes, v.UseRecommendedTarget, v.CustomTarget, v.RecommendedTarget)
	case habit.SleepSettings:
		_, err = q.ExecContext(ctx,
			"INSERT INTO sleep_settings (habit_id, bed_time, wake_time, reminder_enabled, reminder_advance_minutes, target_override) VALUES (?, ?, ?, ?, ?, ?)",
			habitID, v.BedTime, v.WakeTime, v.ReminderEnabled, v.ReminderAdvanceMinutes, v.TargetOverride)
	case habit.ExerciseSettings:
		_, err = q.ExecContext(ctx,
			"INSERT INTO exercise_settings (habit_id, daily_goal_minutes, reminder_enabled, reminder_time) VALUES (?, ?, ?, ?)",
			habitID, v.DailyGoalMinutes, v.ReminderEnabled, v.ReminderTime)
	case habit.NutritionSettings:
		if _, err = q.ExecContext(ctx,
			"INSERT INTO nutrition_settings (habit_id, reminders_enabled) VALUES (?, ?)",
			habitID, v.RemindersEnabled); err == nil {
			err = insertMeals(ctx, q, habitID, v.Meals)
		}
	}
	if err != nil {
		return wrap("insert settings", err)
	}
	return nil
}

func insertMeals(ctx context.Context, q querier, habitID int, meals []habit.Meal) error {
	for i, m := range meals {
		if _, err := q.ExecContext(ctx,
			"INSERT INTO nutrition_meals (habit_id, meal_id, position, label, time, enabled) VALUES (?, ?, ?, ?, ?, ?)",
			habitID, m.ID, i, m.Label, m.Time, m.Enabled); err != nil {
			return err
		}
	}
	return nil
}

func updateSettings(ctx context.Context, q querier, habitID int, st habit.Settings) error {
	var res sql.Result
	var err error
	switch v := st.(type) {
	case habit.WaterSettings:
		res, err = q.ExecContext(ctx,
			"UPDATE water_settings SET reminder_interval_minutes = ?, use_recommended_target = ?, custom_target = ?, recommended_target = ? WHERE habit_id = ?",
			v.ReminderIntervalMinutes, v.UseRecommendedTarget, v.CustomTarget, v.RecommendedTarget, habitID)
	case habit.SleepSettings:
		res, err = q.ExecContext(ctx,
			"UPDATE sleep_settings SET bed_time = ?, wake_time = ?, reminder_enabled = ?, reminder_advance_minutes = ?, target_override = ? WHERE habit_id = ?",
			v.BedTime, v.WakeTime, v.ReminderEnabled, v.ReminderAdvanceMinutes, v.TargetOverride, habitID)
	case habit.ExerciseSettings:
		res, err = q.ExecContext(ctx,
			"UPDATE exercise_settings SET daily_goal_minutes = ?, reminder_enabled = ?, reminder_time = ? WHERE habit_id = ?",
			v.DailyGoalMinutes, v.ReminderEnabled, v.ReminderTime, habitID)
	case habit.NutritionSettings:
		res, err = q.ExecContext(ctx,
			"UPDATE nutrition_settings SET reminders_enabled = ? WHERE habit_id = ?", v.RemindersEnabled, habitID)
		if err == nil {
			if _, err = q.ExecContext(ctx, "DELETE FROM nutrition_meals WHERE habit_id = ?", habitID); err == nil {
				err = insertMeals(ctx, q, habitID, v.Meals)
			}
		}
	default:
		return habit.NewValidationError("type", "unsupported settings variant")
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return habit.NewNotFoundError("settings", string(st.Slug()))
	}
	return nil
}

// SaveSettings stores st and its resolved target. The parent target and the
// settings row are written in one transaction; if either write fails nothing is
// persisted and a *habit.ConflictError is returned.
func (s *Store) SaveSettings(ctx context.Context, userID int, st habit.Settings, target float64, now time.Time) (models.Habit, error) {
	if st == nil {
		return models.Habit{}, habit.NewValidationError("settings", "is required")
	}
	if err := st.Validate(); err != nil {
		return models.Habit{}, err
	}
	if !(target > 0) {
		return models.Habit{}, habit.NewValidationError("targetValue", "must be greater than 0")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Habit{}, rolledBack("update settings", err)
	}
	defer tx.Rollback()

	rec, err := habitBySlug(ctx, tx, userID, st.Slug())
	if err != nil {
		return models.Habit{}, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE habits SET target_value = ?, updated_at = ? WHERE id = ?",
		target, formatTS(now), rec.ID); err != nil {
		return models.Habit{}, rolledBack("update habit target", err)
	}
	if err := updateSettings(ctx, tx, rec.ID, st); err != nil {
		s.logger.Warn("Settings update rolled back",
			zap.Int("user_id", userID),
			zap.String("habit", string(rec.Slug)),
			zap.Error(err),
		)
		return models.Habit{}, rolledBack("update "+string(rec.Slug)+" settings", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Habit{}, rolledBack("commit settings", err)
	}

	rec.TargetValue = target
	rec.UpdatedAt = now
	return rec, nil
}
