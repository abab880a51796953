package service

import (
	"context"
	"fmt"
	"time"

	"garage_door"
	"garage_door/internal/notify"
	"garage_door/internal/repository"
)

type CheckInService struct {
	eventRepo repository.EventRepo
	notifier  notify.Notifier
	cfg       Config
}

func NewCheckInService(eventRepo repository.EventRepo, notifier notify.Notifier, cfg Config) *CheckInService {
	return &CheckInService{eventRepo: eventRepo, notifier: notifier, cfg: cfg}
}

var _ CheckIn = (*CheckInService)(nil)

// Process handles one inbound device report: interpret the snapshot against
// the stored event, persist the outcome, and notify subscribers. When the
// state is unchanged, the stored event is re-saved with an advanced check-in
// time so downstream "last seen" logic keeps working.
func (s *CheckInService) Process(ctx context.Context, buildTimestamp string, snap garage_door.SensorSnapshot) (garage_door.EventRecord, error) {
	return s.update(ctx, buildTimestamp, snap, false)
}

// Sweep re-evaluates every known device with an empty snapshot. Only
// elapsed-time transitions can fire, and heartbeat-only saves are skipped so
// the sweep never writes unless the state actually changed.
func (s *CheckInService) Sweep(ctx context.Context) error {
	ids, err := s.eventRepo.DeviceIDs(ctx)
	if err != nil {
		return fmt.Errorf("list devices for sweep: %w", err)
	}
	for _, id := range ids {
		if _, err := s.update(ctx, id, garage_door.SensorSnapshot{}, true); err != nil {
			return fmt.Errorf("sweep device %q: %w", id, err)
		}
	}
	return nil
}

func (s *CheckInService) update(ctx context.Context, buildTimestamp string, snap garage_door.SensorSnapshot, fromSweep bool) (garage_door.EventRecord, error) {
	nowSeconds := time.Now().Unix()

	oldRecord, err := s.eventRepo.LoadCurrent(ctx, buildTimestamp)
	if err != nil {
		return garage_door.EventRecord{}, err
	}
	var oldEvent *garage_door.SensorEvent
	if oldRecord != nil {
		oldEvent = &oldRecord.CurrentEvent
	}

	newEvent := NextEvent(oldEvent, snap, nowSeconds, s.cfg.TooLongSeconds)
	if newEvent != nil {
		rec := garage_door.EventRecord{
			BuildTimestamp: buildTimestamp,
			CurrentEvent:   *newEvent,
			PreviousEvent:  oldEvent,
		}
		saved, err := s.eventRepo.Save(ctx, rec)
		if err != nil {
			return garage_door.EventRecord{}, err
		}
		s.publish(ctx, buildTimestamp, saved.CurrentEvent)
		return saved, nil
	}

	// No new event. The sweep only acts on state changes; a device report
	// still records a heartbeat.
	if fromSweep {
		if oldRecord == nil {
			return garage_door.EventRecord{}, nil
		}
		return *oldRecord, nil
	}
	if oldRecord == nil {
		// Unreachable: a nil previous event always yields a new event.
		return garage_door.EventRecord{}, fmt.Errorf("no event produced for first report of %q", buildTimestamp)
	}
	oldRecord.CurrentEvent.CheckInTimestampSeconds = nowSeconds
	saved, err := s.eventRepo.Save(ctx, *oldRecord)
	if err != nil {
		return garage_door.EventRecord{}, err
	}
	s.publish(ctx, buildTimestamp, saved.CurrentEvent)
	return saved, nil
}

// publish is best-effort: a notifier outage must not fail the check-in, the
// device will report again.
func (s *CheckInService) publish(ctx context.Context, buildTimestamp string, ev garage_door.SensorEvent) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Publish(ctx, notify.TopicForDevice(buildTimestamp), notify.EventPayload(ev))
}

// EventQueryService serves the read side of the event timeline.
type EventQueryService struct {
	eventRepo repository.EventRepo
}

func NewEventQueryService(eventRepo repository.EventRepo) *EventQueryService {
	return &EventQueryService{eventRepo: eventRepo}
}

var _ Events = (*EventQueryService)(nil)

const defaultHistoryMaxCount = 12

func (s *EventQueryService) Current(ctx context.Context, buildTimestamp string) (*garage_door.EventRecord, error) {
	return s.eventRepo.LoadCurrent(ctx, buildTimestamp)
}

func (s *EventQueryService) History(ctx context.Context, buildTimestamp string, maxCount int) ([]garage_door.EventRecord, error) {
	if maxCount <= 0 {
		maxCount = defaultHistoryMaxCount
	}
	return s.eventRepo.Recent(ctx, buildTimestamp, maxCount)
}
