package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

const schemaEventsCurrent = `
CREATE TABLE IF NOT EXISTS events_current (
    build_timestamp TEXT PRIMARY KEY,
    current_event TEXT NOT NULL,
    previous_event TEXT,
    written_at INTEGER NOT NULL
);
`

const schemaEventsHistory = `
CREATE TABLE IF NOT EXISTS events_history (
    id TEXT PRIMARY KEY,
    build_timestamp TEXT NOT NULL,
    current_event TEXT NOT NULL,
    previous_event TEXT,
    written_at INTEGER NOT NULL
);
`

const schemaEventsHistoryIndex = `
CREATE INDEX IF NOT EXISTS idx_events_history_device
    ON events_history (build_timestamp, written_at);
`

const schemaCommandsCurrent = `
CREATE TABLE IF NOT EXISTS commands_current (
    build_timestamp TEXT PRIMARY KEY,
    command TEXT NOT NULL,
    written_at INTEGER NOT NULL
);
`

const schemaCommandsHistory = `
CREATE TABLE IF NOT EXISTS commands_history (
    id TEXT PRIMARY KEY,
    build_timestamp TEXT NOT NULL,
    command TEXT NOT NULL,
    written_at INTEGER NOT NULL
);
`

const schemaSnoozesCurrent = `
CREATE TABLE IF NOT EXISTS snoozes_current (
    build_timestamp TEXT PRIMARY KEY,
    snooze TEXT NOT NULL,
    written_at INTEGER NOT NULL
);
`

const schemaRemindersCurrent = `
CREATE TABLE IF NOT EXISTS reminders_current (
    build_timestamp TEXT PRIMARY KEY,
    event_timestamp INTEGER NOT NULL,
    written_at INTEGER NOT NULL
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
);
`

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Conservative pool settings for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaEventsCurrent,
		schemaEventsHistory,
		schemaEventsHistoryIndex,
		schemaCommandsCurrent,
		schemaCommandsHistory,
		schemaSnoozesCurrent,
		schemaRemindersCurrent,
		schemaUsers,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
