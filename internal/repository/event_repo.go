package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"garage_door"

	"github.com/google/uuid"
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

var _ EventRepo = (*EventSQLite)(nil)

const (
	upsertEventCurrentSQL = `
		INSERT INTO events_current (build_timestamp, current_event, previous_event, written_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(build_timestamp) DO UPDATE SET
			current_event=excluded.current_event,
			previous_event=excluded.previous_event,
			written_at=excluded.written_at
	`

	insertEventHistorySQL = `
		INSERT INTO events_history (id, build_timestamp, current_event, previous_event, written_at)
		VALUES (?, ?, ?, ?, ?)
	`

	selectEventCurrentSQL = `
		SELECT current_event, previous_event, written_at
		FROM events_current WHERE build_timestamp = ?
	`

	selectEventRecentSQL = `
		SELECT current_event, previous_event, written_at
		FROM events_history WHERE build_timestamp = ?
		ORDER BY written_at DESC LIMIT ?
	`

	selectEventDevicesSQL = `SELECT build_timestamp FROM events_current`
)

func marshalEvent(e garage_door.SensorEvent) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal sensor event: %w", err)
	}
	return string(b), nil
}

func marshalOptionalEvent(e *garage_door.SensorEvent) (sql.NullString, error) {
	if e == nil {
		return sql.NullString{}, nil
	}
	s, err := marshalEvent(*e)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}

func scanEventRecord(buildTimestamp, currentJSON string, previousJSON sql.NullString, writtenAt int64) (garage_door.EventRecord, error) {
	var rec garage_door.EventRecord
	rec.BuildTimestamp = buildTimestamp
	rec.WrittenAtSeconds = writtenAt
	if err := json.Unmarshal([]byte(currentJSON), &rec.CurrentEvent); err != nil {
		return garage_door.EventRecord{}, fmt.Errorf("unmarshal current event: %w", err)
	}
	if previousJSON.Valid && previousJSON.String != "" {
		var prev garage_door.SensorEvent
		if err := json.Unmarshal([]byte(previousJSON.String), &prev); err != nil {
			return garage_door.EventRecord{}, fmt.Errorf("unmarshal previous event: %w", err)
		}
		rec.PreviousEvent = &prev
	}
	return rec, nil
}

// Save overwrites the device's current record and appends it to history in one
// transaction. The write timestamp is assigned here, not by the caller.
func (r *EventSQLite) Save(ctx context.Context, rec garage_door.EventRecord) (garage_door.EventRecord, error) {
	currentJSON, err := marshalEvent(rec.CurrentEvent)
	if err != nil {
		return garage_door.EventRecord{}, err
	}
	previousJSON, err := marshalOptionalEvent(rec.PreviousEvent)
	if err != nil {
		return garage_door.EventRecord{}, err
	}
	rec.WrittenAtSeconds = time.Now().Unix()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return garage_door.EventRecord{}, fmt.Errorf("begin event save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertEventCurrentSQL,
		rec.BuildTimestamp, currentJSON, previousJSON, rec.WrittenAtSeconds); err != nil {
		return garage_door.EventRecord{}, fmt.Errorf("upsert current event: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertEventHistorySQL,
		uuid.NewString(), rec.BuildTimestamp, currentJSON, previousJSON, rec.WrittenAtSeconds); err != nil {
		return garage_door.EventRecord{}, fmt.Errorf("append event history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return garage_door.EventRecord{}, fmt.Errorf("commit event save: %w", err)
	}
	return rec, nil
}

// LoadCurrent returns the device's current record, or (nil, nil) if the device
// has never reported.
func (r *EventSQLite) LoadCurrent(ctx context.Context, buildTimestamp string) (*garage_door.EventRecord, error) {
	row := r.db.QueryRowContext(ctx, selectEventCurrentSQL, buildTimestamp)

	var (
		currentJSON  string
		previousJSON sql.NullString
		writtenAt    int64
	)
	if err := row.Scan(&currentJSON, &previousJSON, &writtenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select current event for %q: %w", buildTimestamp, err)
	}
	rec, err := scanEventRecord(buildTimestamp, currentJSON, previousJSON, writtenAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Recent returns up to maxCount history records, newest first.
func (r *EventSQLite) Recent(ctx context.Context, buildTimestamp string, maxCount int) ([]garage_door.EventRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectEventRecentSQL, buildTimestamp, maxCount)
	if err != nil {
		return nil, fmt.Errorf("select event history for %q: %w", buildTimestamp, err)
	}
	defer rows.Close()

	out := make([]garage_door.EventRecord, 0, maxCount)
	for rows.Next() {
		var (
			currentJSON  string
			previousJSON sql.NullString
			writtenAt    int64
		)
		if err := rows.Scan(&currentJSON, &previousJSON, &writtenAt); err != nil {
			return nil, err
		}
		rec, err := scanEventRecord(buildTimestamp, currentJSON, previousJSON, writtenAt)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeviceIDs lists every device that has a current record. Used by the sweep.
func (r *EventSQLite) DeviceIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, selectEventDevicesSQL)
	if err != nil {
		return nil, fmt.Errorf("select device ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PurgeHistoryBefore deletes history rows older than the cutoff. With dryRun
// it only counts what would be deleted.
func (r *EventSQLite) PurgeHistoryBefore(ctx context.Context, cutoffSeconds int64, dryRun bool) (int64, error) {
	if dryRun {
		var n int64
		err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM events_history WHERE written_at < ?`, cutoffSeconds).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("count old event history: %w", err)
		}
		return n, nil
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM events_history WHERE written_at < ?`, cutoffSeconds)
	if err != nil {
		return 0, fmt.Errorf("delete old event history: %w", err)
	}
	return res.RowsAffected()
}
