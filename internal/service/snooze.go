package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"garage_door"
	"garage_door/internal/repository"
)

// SnoozeService validates and stores open-door reminder suppressions. A
// snooze is bound to the event identity that was current when it was created;
// it is never deleted, only reinterpreted once the door changes or the end
// time passes.
type SnoozeService struct {
	snoozeRepo repository.SnoozeRepo
	eventRepo  repository.EventRepo
	auth       Authorization
}

func NewSnoozeService(snoozeRepo repository.SnoozeRepo, eventRepo repository.EventRepo, auth Authorization) *SnoozeService {
	return &SnoozeService{snoozeRepo: snoozeRepo, eventRepo: eventRepo, auth: auth}
}

var _ Snooze = (*SnoozeService)(nil)

const maxSnoozeHours = 12

// parseSnoozeDuration accepts the enumerated labels "0h" through "12h" and
// returns the duration in seconds.
func parseSnoozeDuration(label string) (int64, error) {
	if !strings.HasSuffix(label, "h") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, label)
	}
	hours, err := strconv.Atoi(strings.TrimSuffix(label, "h"))
	if err != nil || hours < 0 || hours > maxSnoozeHours {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, label)
	}
	return int64(hours) * 3600, nil
}

// Submit stores a new snooze bound to the device's current event. A mismatch
// between the caller's event timestamp and the stored one means the caller is
// acting on a stale view and must refresh.
func (s *SnoozeService) Submit(ctx context.Context, p SnoozeSubmitParams) (garage_door.SnoozeRequest, error) {
	if !s.auth.IsAllowed(p.RequesterEmail) {
		return garage_door.SnoozeRequest{}, ErrForbidden
	}

	rec, err := s.eventRepo.LoadCurrent(ctx, p.BuildTimestamp)
	if err != nil {
		return garage_door.SnoozeRequest{}, err
	}
	if rec == nil {
		return garage_door.SnoozeRequest{}, ErrNoCurrentEvent
	}
	if rec.CurrentEvent.TimestampSeconds != p.SnoozeEventTimestamp {
		return garage_door.SnoozeRequest{}, ErrStaleEvent
	}

	durationSeconds, err := parseSnoozeDuration(p.SnoozeDuration)
	if err != nil {
		return garage_door.SnoozeRequest{}, err
	}

	nowSeconds := time.Now().Unix()
	snooze := garage_door.SnoozeRequest{
		CurrentEventTimestampSeconds: rec.CurrentEvent.TimestampSeconds,
		SnoozeRequestSeconds:         nowSeconds,
		SnoozeDuration:               p.SnoozeDuration,
		SnoozeEndTimeSeconds:         nowSeconds + durationSeconds,
	}
	if err := s.snoozeRepo.Save(ctx, p.BuildTimestamp, snooze); err != nil {
		return garage_door.SnoozeRequest{}, err
	}
	return snooze, nil
}

// Status reports whether a snooze is in effect. NONE covers every way a
// stored request can be irrelevant: no current event, no request, or a
// request bound to an event that is no longer current.
func (s *SnoozeService) Status(ctx context.Context, buildTimestamp string) (SnoozeStatusResult, error) {
	rec, err := s.eventRepo.LoadCurrent(ctx, buildTimestamp)
	if err != nil {
		return SnoozeStatusResult{}, err
	}
	if rec == nil {
		return SnoozeStatusResult{Status: garage_door.SnoozeNone}, nil
	}

	snooze, err := s.snoozeRepo.Load(ctx, buildTimestamp)
	if err != nil {
		return SnoozeStatusResult{}, err
	}
	if snooze == nil {
		return SnoozeStatusResult{Status: garage_door.SnoozeNone}, nil
	}
	if snooze.CurrentEventTimestampSeconds != rec.CurrentEvent.TimestampSeconds {
		return SnoozeStatusResult{Status: garage_door.SnoozeNone}, nil
	}
	if time.Now().Unix() > snooze.SnoozeEndTimeSeconds {
		return SnoozeStatusResult{Status: garage_door.SnoozeExpired, Snooze: snooze}, nil
	}
	return SnoozeStatusResult{Status: garage_door.SnoozeActive, Snooze: snooze}, nil
}
