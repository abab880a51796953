package repository

import (
	"context"
	"database/sql"

	"garage_door"
)

// EventRepo stores per-device door events with "current + history" semantics.
// Every Save stamps the record with a store-assigned write time.
type EventRepo interface {
	LoadCurrent(ctx context.Context, buildTimestamp string) (*garage_door.EventRecord, error)
	Save(ctx context.Context, rec garage_door.EventRecord) (garage_door.EventRecord, error)
	Recent(ctx context.Context, buildTimestamp string, maxCount int) ([]garage_door.EventRecord, error)
	DeviceIDs(ctx context.Context) ([]string, error)
	PurgeHistoryBefore(ctx context.Context, cutoffSeconds int64, dryRun bool) (int64, error)
}

// CommandRepo stores the single outstanding remote command per device, plus an
// append-only audit trail of every write.
type CommandRepo interface {
	LoadCurrent(ctx context.Context, buildTimestamp string) (*garage_door.RemoteCommand, error)
	Save(ctx context.Context, cmd garage_door.RemoteCommand) (garage_door.RemoteCommand, error)
	PurgeHistoryBefore(ctx context.Context, cutoffSeconds int64, dryRun bool) (int64, error)
}

// SnoozeRepo stores the one snooze request per device. Expired or unbound
// snoozes are reinterpreted on read, never deleted.
type SnoozeRepo interface {
	Load(ctx context.Context, buildTimestamp string) (*garage_door.SnoozeRequest, error)
	Save(ctx context.Context, buildTimestamp string, snooze garage_door.SnoozeRequest) error
}

// ReminderRepo remembers the last event identity an open-door reminder was
// sent for, so each event is reminded about at most once.
type ReminderRepo interface {
	LastNotifiedEvent(ctx context.Context, buildTimestamp string) (int64, error)
	MarkNotified(ctx context.Context, buildTimestamp string, eventTimestamp int64) error
}

type Authorization interface {
	Create(email, hash string) (int, error)
	GetByEmail(email string) (*garage_door.User, error)
}

type Repository struct {
	Events    EventRepo
	Commands  CommandRepo
	Snoozes   SnoozeRepo
	Reminders ReminderRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Events:    NewEventSQLite(db),
		Commands:  NewCommandSQLite(db),
		Snoozes:   NewSnoozeSQLite(db),
		Reminders: NewReminderSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
