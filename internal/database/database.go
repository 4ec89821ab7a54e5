package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Initialize opens the SQLite database at dbPath and ensures the schema exists.
// A non-empty encryptionKey is applied with PRAGMA key (SQLCipher builds only).
func Initialize(dbPath, encryptionKey string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection also keeps :memory: databases intact.
	db.SetMaxOpenConns(1)

	if encryptionKey != "" {
		esc := strings.ReplaceAll(encryptionKey, "'", "''")
		if _, err := db.Exec(fmt.Sprintf("PRAGMA key = '%s';", esc)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set database encryption key: %w", err)
		}
		_, _ = db.Exec("PRAGMA cipher_compatibility = 4;")
		var count int
		if err := db.QueryRow("SELECT count(*) FROM sqlite_master;").Scan(&count); err != nil {
			db.Close()
			return nil, fmt.Errorf("database inaccessible with provided encryption key: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		height REAL,
		weight REAL,
		age INTEGER,
		created_at TEXT NOT NULL
	);

	-- Parent habit row: holds the resolved target derived from the settings row.
	CREATE TABLE IF NOT EXISTS habits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		slug TEXT NOT NULL,
		target_value REAL NOT NULL,
		target_unit TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(user_id, slug),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS water_settings (
		habit_id INTEGER PRIMARY KEY,
		reminder_interval_minutes INTEGER NOT NULL,
		use_recommended_target BOOLEAN NOT NULL,
		custom_target INTEGER,
		recommended_target INTEGER NOT NULL,
		FOREIGN KEY (habit_id) REFERENCES habits(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS sleep_settings (
		habit_id INTEGER PRIMARY KEY,
		bed_time TEXT NOT NULL,
		wake_time TEXT NOT NULL,
		reminder_enabled BOOLEAN NOT NULL,
		reminder_advance_minutes INTEGER NOT NULL,
		target_override REAL,
		FOREIGN KEY (habit_id) REFERENCES habits(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS exercise_settings (
		habit_id INTEGER PRIMARY KEY,
		daily_goal_minutes INTEGER NOT NULL,
		reminder_enabled BOOLEAN NOT NULL,
		reminder_time TEXT NOT NULL,
		FOREIGN KEY (habit_id) REFERENCES habits(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS nutrition_settings (
		habit_id INTEGER PRIMARY KEY,
		reminders_enabled BOOLEAN NOT NULL,
		FOREIGN KEY (habit_id) REFERENCES habits(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS nutrition_meals (
		habit_id INTEGER NOT NULL,
		meal_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		label TEXT NOT NULL,
		time TEXT NOT NULL,
		enabled BOOLEAN NOT NULL,
		PRIMARY KEY (habit_id, meal_id),
		FOREIGN KEY (habit_id) REFERENCES habits(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS habit_logs (
		id TEXT PRIMARY KEY,
		habit_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		value REAL NOT NULL CHECK (value > 0),
		notes TEXT,
		logged_at TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (habit_id) REFERENCES habits(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	-- Reminders, achievements and alerts. Reminder rows are replaced on every
	-- recompute of their day; read state is carried over by (habit, scheduled_for).
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		habit_slug TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		day TEXT NOT NULL,
		scheduled_for TEXT,
		read BOOLEAN NOT NULL DEFAULT 0,
		read_at TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS daily_snapshots (
		user_id INTEGER NOT NULL,
		day TEXT NOT NULL,
		total_habits INTEGER NOT NULL,
		completed_habits INTEGER NOT NULL,
		completion_percentage INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, day),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS push_subscriptions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		endpoint TEXT NOT NULL,
		p256dh TEXT NOT NULL,
		auth TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, endpoint),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		ttl_days INTEGER NOT NULL DEFAULT 7,
		revoked BOOLEAN DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id);
	CREATE INDEX IF NOT EXISTS idx_habit_logs_user_day ON habit_logs(user_id, entry_date);
	CREATE INDEX IF NOT EXISTS idx_habit_logs_habit ON habit_logs(habit_id, logged_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_user_day ON notifications(user_id, day);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_achievement_once
		ON notifications(user_id, habit_slug, day) WHERE type = 'achievement';
	CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id);
	`

	_, err := db.Exec(schema)
	return err
}
