package service

import (
	"context"
	"time"

	"garage_door"
	"garage_door/internal/notify"
	"garage_door/internal/repository"
)

// CheckIn turns device sensor reports into the per-device event timeline.
// Sweep re-evaluates stored events against elapsed time without a fresh
// snapshot, so in-motion states escalate even if a device stops reporting.
type CheckIn interface {
	Process(ctx context.Context, buildTimestamp string, snap garage_door.SensorSnapshot) (garage_door.EventRecord, error)
	Sweep(ctx context.Context) error
}

// RemoteCommand arbitrates the single outstanding actuation command per device.
type RemoteCommand interface {
	RequestPush(ctx context.Context, p PushParams) (garage_door.RemoteCommand, error)
	DevicePoll(ctx context.Context, p PollParams) (garage_door.RemoteCommand, error)
}

// Snooze manages the time-bounded suppression of open-door reminders.
type Snooze interface {
	Submit(ctx context.Context, p SnoozeSubmitParams) (garage_door.SnoozeRequest, error)
	Status(ctx context.Context, buildTimestamp string) (SnoozeStatusResult, error)
}

// Events exposes read-only access to the event timeline.
type Events interface {
	Current(ctx context.Context, buildTimestamp string) (*garage_door.EventRecord, error)
	History(ctx context.Context, buildTimestamp string, maxCount int) ([]garage_door.EventRecord, error)
}

// Reminders sends "door left open" notifications for stale non-closed events,
// at most once per event, honoring active snoozes.
type Reminders interface {
	CheckOpenDoors(ctx context.Context) error
}

// Maintenance applies the data retention policy to history tables.
type Maintenance interface {
	PurgeHistory(ctx context.Context, olderThan time.Duration, dryRun bool) (PurgeResult, error)
}

type Authorization interface {
	SignUp(email, password string) (int, error)
	GenerateToken(email, password string) (string, error)
	ParseToken(accessToken string) (string, error)
	VerifyPushKey(key string) bool
	IsAllowed(email string) bool
}

// Config carries the tunable thresholds and credentials. Values come from
// configs/config.yml; tests compress the durations.
type Config struct {
	TooLongSeconds        int64 // in-motion escalation threshold
	MinReissueSeconds     int64 // minimum period between accepted push requests
	CommandTimeoutSeconds int64 // pending command abandoned after this
	ReminderAfterSeconds  int64 // door considered "left open" after this

	SigningKey    string
	TokenTTL      time.Duration
	PushKey       string
	AllowedEmails []string
}

type Service struct {
	CheckIn
	RemoteCommand
	Snooze
	Events
	Reminders
	Maintenance
	Authorization
}

// NewService wires the repository layer and notifier into concrete services.
func NewService(repos *repository.Repository, notifier notify.Notifier, cfg Config) *Service {
	auth := NewAuthService(repos.Auth, cfg)
	return &Service{
		CheckIn:       NewCheckInService(repos.Events, notifier, cfg),
		RemoteCommand: NewRemoteCommandService(repos.Commands, auth, cfg),
		Snooze:        NewSnoozeService(repos.Snoozes, repos.Events, auth),
		Events:        NewEventQueryService(repos.Events),
		Reminders:     NewReminderService(repos.Events, repos.Snoozes, repos.Reminders, notifier, cfg),
		Maintenance:   NewMaintenanceService(repos.Events, repos.Commands),
		Authorization: auth,
	}
}
