package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"garage_door"
)

type SnoozeSQLite struct {
	db *sql.DB
}

func NewSnoozeSQLite(db *sql.DB) *SnoozeSQLite { return &SnoozeSQLite{db: db} }

var _ SnoozeRepo = (*SnoozeSQLite)(nil)

const (
	upsertSnoozeSQL = `
		INSERT INTO snoozes_current (build_timestamp, snooze, written_at)
		VALUES (?, ?, ?)
		ON CONFLICT(build_timestamp) DO UPDATE SET
			snooze=excluded.snooze,
			written_at=excluded.written_at
	`

	selectSnoozeSQL = `SELECT snooze FROM snoozes_current WHERE build_timestamp = ?`
)

func (r *SnoozeSQLite) Save(ctx context.Context, buildTimestamp string, snooze garage_door.SnoozeRequest) error {
	b, err := json.Marshal(snooze)
	if err != nil {
		return fmt.Errorf("marshal snooze request: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, upsertSnoozeSQL,
		buildTimestamp, string(b), time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert snooze for %q: %w", buildTimestamp, err)
	}
	return nil
}

// Load returns the stored snooze, or (nil, nil) if none was ever submitted.
func (r *SnoozeSQLite) Load(ctx context.Context, buildTimestamp string) (*garage_door.SnoozeRequest, error) {
	row := r.db.QueryRowContext(ctx, selectSnoozeSQL, buildTimestamp)

	var snoozeJSON string
	if err := row.Scan(&snoozeJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select snooze for %q: %w", buildTimestamp, err)
	}
	var snooze garage_door.SnoozeRequest
	if err := json.Unmarshal([]byte(snoozeJSON), &snooze); err != nil {
		return nil, fmt.Errorf("unmarshal snooze request: %w", err)
	}
	return &snooze, nil
}

type ReminderSQLite struct {
	db *sql.DB
}

func NewReminderSQLite(db *sql.DB) *ReminderSQLite { return &ReminderSQLite{db: db} }

var _ ReminderRepo = (*ReminderSQLite)(nil)

// LastNotifiedEvent returns the event timestamp of the last reminder sent for
// the device, or 0 if none was ever sent.
func (r *ReminderSQLite) LastNotifiedEvent(ctx context.Context, buildTimestamp string) (int64, error) {
	var ts int64
	err := r.db.QueryRowContext(ctx,
		`SELECT event_timestamp FROM reminders_current WHERE build_timestamp = ?`,
		buildTimestamp).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select reminder for %q: %w", buildTimestamp, err)
	}
	return ts, nil
}

func (r *ReminderSQLite) MarkNotified(ctx context.Context, buildTimestamp string, eventTimestamp int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reminders_current (build_timestamp, event_timestamp, written_at)
		VALUES (?, ?, ?)
		ON CONFLICT(build_timestamp) DO UPDATE SET
			event_timestamp=excluded.event_timestamp,
			written_at=excluded.written_at
	`, buildTimestamp, eventTimestamp, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert reminder for %q: %w", buildTimestamp, err)
	}
	return nil
}
