package database

import (
	"database/sql"
	"fmt"
)

// columnExists checks if a column exists on a given table (SQLite PRAGMA table_info)
func columnExists(db *sql.DB, table string, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var cid int
	var name string
	var ctype string
	var notnull int
	var dflt sql.NullString
	var pk int

	for rows.Next() {
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

type columnMigration struct {
	table      string
	column     string
	definition string
}

// columns added after the first schema release, oldest first
var columnMigrations = []columnMigration{
	{"users", "timezone", "TEXT NOT NULL DEFAULT 'UTC'"},
	{"users", "height", "REAL"},
	{"users", "weight", "REAL"},
	{"users", "age", "INTEGER"},
	{"sleep_settings", "target_override", "REAL"},
}

// Migrate adds any missing columns. It is idempotent.
func Migrate(db *sql.DB) ([]string, error) {
	var applied []string
	for _, m := range columnMigrations {
		exists, err := columnExists(db, m.table, m.column)
		if err != nil {
			return applied, err
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.definition)
		if _, err := db.Exec(stmt); err != nil {
			return applied, fmt.Errorf("migrating %s.%s: %w", m.table, m.column, err)
		}
		applied = append(applied, m.table+"."+m.column)
	}
	return applied, nil
}
