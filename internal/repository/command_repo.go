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

type CommandSQLite struct {
	db *sql.DB
}

func NewCommandSQLite(db *sql.DB) *CommandSQLite { return &CommandSQLite{db: db} }

var _ CommandRepo = (*CommandSQLite)(nil)

const (
	upsertCommandCurrentSQL = `
		INSERT INTO commands_current (build_timestamp, command, written_at)
		VALUES (?, ?, ?)
		ON CONFLICT(build_timestamp) DO UPDATE SET
			command=excluded.command,
			written_at=excluded.written_at
	`

	insertCommandHistorySQL = `
		INSERT INTO commands_history (id, build_timestamp, command, written_at)
		VALUES (?, ?, ?, ?)
	`

	selectCommandCurrentSQL = `
		SELECT command, written_at FROM commands_current WHERE build_timestamp = ?
	`
)

// Save overwrites the device's current command and appends it to the audit
// trail. The returned command carries the store-assigned write time, which the
// arbiter's re-issue and timeout checks compare against.
func (r *CommandSQLite) Save(ctx context.Context, cmd garage_door.RemoteCommand) (garage_door.RemoteCommand, error) {
	cmd.WrittenAtSeconds = time.Now().Unix()
	b, err := json.Marshal(cmd)
	if err != nil {
		return garage_door.RemoteCommand{}, fmt.Errorf("marshal remote command: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return garage_door.RemoteCommand{}, fmt.Errorf("begin command save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertCommandCurrentSQL,
		cmd.BuildTimestamp, string(b), cmd.WrittenAtSeconds); err != nil {
		return garage_door.RemoteCommand{}, fmt.Errorf("upsert current command: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertCommandHistorySQL,
		uuid.NewString(), cmd.BuildTimestamp, string(b), cmd.WrittenAtSeconds); err != nil {
		return garage_door.RemoteCommand{}, fmt.Errorf("append command history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return garage_door.RemoteCommand{}, fmt.Errorf("commit command save: %w", err)
	}
	return cmd, nil
}

// LoadCurrent returns the device's current command, or (nil, nil) if no
// command was ever issued.
func (r *CommandSQLite) LoadCurrent(ctx context.Context, buildTimestamp string) (*garage_door.RemoteCommand, error) {
	row := r.db.QueryRowContext(ctx, selectCommandCurrentSQL, buildTimestamp)

	var (
		commandJSON string
		writtenAt   int64
	)
	if err := row.Scan(&commandJSON, &writtenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select current command for %q: %w", buildTimestamp, err)
	}
	var cmd garage_door.RemoteCommand
	if err := json.Unmarshal([]byte(commandJSON), &cmd); err != nil {
		return nil, fmt.Errorf("unmarshal remote command: %w", err)
	}
	cmd.WrittenAtSeconds = writtenAt
	return &cmd, nil
}

// PurgeHistoryBefore deletes audit rows older than the cutoff. With dryRun it
// only counts what would be deleted.
func (r *CommandSQLite) PurgeHistoryBefore(ctx context.Context, cutoffSeconds int64, dryRun bool) (int64, error) {
	if dryRun {
		var n int64
		err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM commands_history WHERE written_at < ?`, cutoffSeconds).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("count old command history: %w", err)
		}
		return n, nil
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM commands_history WHERE written_at < ?`, cutoffSeconds)
	if err != nil {
		return 0, fmt.Errorf("delete old command history: %w", err)
	}
	return res.RowsAffected()
}
