package service

import (
	"context"
	"fmt"
	"time"

	"garage_door"
	"garage_door/internal/notify"
	"garage_door/internal/repository"
)

// ReminderService notifies subscribers when a door has been left not-closed
// for too long. Each event identity is reminded about at most once, and an
// active snooze bound to that event suppresses the reminder entirely.
type ReminderService struct {
	eventRepo    repository.EventRepo
	snoozeRepo   repository.SnoozeRepo
	reminderRepo repository.ReminderRepo
	notifier     notify.Notifier
	cfg          Config
}

func NewReminderService(eventRepo repository.EventRepo, snoozeRepo repository.SnoozeRepo, reminderRepo repository.ReminderRepo, notifier notify.Notifier, cfg Config) *ReminderService {
	return &ReminderService{
		eventRepo:    eventRepo,
		snoozeRepo:   snoozeRepo,
		reminderRepo: reminderRepo,
		notifier:     notifier,
		cfg:          cfg,
	}
}

var _ Reminders = (*ReminderService)(nil)

// CheckOpenDoors runs one reminder pass over all known devices.
func (s *ReminderService) CheckOpenDoors(ctx context.Context) error {
	ids, err := s.eventRepo.DeviceIDs(ctx)
	if err != nil {
		return fmt.Errorf("list devices for reminders: %w", err)
	}
	for _, id := range ids {
		if err := s.checkDevice(ctx, id); err != nil {
			return fmt.Errorf("reminder check for %q: %w", id, err)
		}
	}
	return nil
}

func (s *ReminderService) checkDevice(ctx context.Context, buildTimestamp string) error {
	rec, err := s.eventRepo.LoadCurrent(ctx, buildTimestamp)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	ev := rec.CurrentEvent
	if ev.Type == garage_door.StateClosed {
		return nil
	}

	nowSeconds := time.Now().Unix()
	if nowSeconds-ev.TimestampSeconds <= s.cfg.ReminderAfterSeconds {
		return nil
	}

	// One reminder per event identity.
	lastNotified, err := s.reminderRepo.LastNotifiedEvent(ctx, buildTimestamp)
	if err != nil {
		return err
	}
	if lastNotified == ev.TimestampSeconds {
		return nil
	}

	snoozed, err := s.snoozeActive(ctx, buildTimestamp, ev.TimestampSeconds, nowSeconds)
	if err != nil {
		return err
	}
	if snoozed {
		return nil
	}

	payload := notify.EventPayload(ev)
	payload["message"] = openDoorMessage(ev, nowSeconds)
	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, notify.TopicForDevice(buildTimestamp), payload); err != nil {
			return err
		}
	}
	return s.reminderRepo.MarkNotified(ctx, buildTimestamp, ev.TimestampSeconds)
}

func (s *ReminderService) snoozeActive(ctx context.Context, buildTimestamp string, eventTimestamp, nowSeconds int64) (bool, error) {
	snooze, err := s.snoozeRepo.Load(ctx, buildTimestamp)
	if err != nil {
		return false, err
	}
	if snooze == nil {
		return false, nil
	}
	if snooze.CurrentEventTimestampSeconds != eventTimestamp {
		return false, nil
	}
	return nowSeconds <= snooze.SnoozeEndTimeSeconds, nil
}

func openDoorMessage(ev garage_door.SensorEvent, nowSeconds int64) string {
	durationMinutes := (nowSeconds - ev.TimestampSeconds) / 60
	if durationMinutes < 60 {
		return fmt.Sprintf("The door has not been closed for %d minutes.", durationMinutes)
	}
	return fmt.Sprintf("The door has not been closed for %d hours.", durationMinutes/60)
}
