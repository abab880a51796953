package service

import (
	"context"
	"time"

	"garage_door"
	"garage_door/internal/repository"

	"github.com/google/uuid"
)

// RemoteCommandService arbitrates the per-device command channel. The device
// has no push channel of its own, so it polls; the requester, the polling
// device, and the clock race against each other, resolved through last-write-
// wins on the single stored command. An acceptable lost race means one extra
// or one skipped actuation, never corruption.
type RemoteCommandService struct {
	commandRepo repository.CommandRepo
	auth        Authorization
	cfg         Config
}

func NewRemoteCommandService(commandRepo repository.CommandRepo, auth Authorization, cfg Config) *RemoteCommandService {
	return &RemoteCommandService{commandRepo: commandRepo, auth: auth, cfg: cfg}
}

var _ RemoteCommand = (*RemoteCommandService)(nil)

// RequestPush submits a new actuation command. The requester must be on the
// allow-list, and the previous command must be older than the minimum re-issue
// period so the physical actuator cannot be double-triggered.
//
// An empty ButtonAckToken is accepted: the resulting command can never be
// acknowledged and will clear through the timeout path. Whether to reject such
// requests instead is a deployment decision; the accepted behavior matches the
// deployed device fleet.
func (s *RemoteCommandService) RequestPush(ctx context.Context, p PushParams) (garage_door.RemoteCommand, error) {
	if !s.auth.IsAllowed(p.RequesterEmail) {
		return garage_door.RemoteCommand{}, ErrForbidden
	}

	old, err := s.commandRepo.LoadCurrent(ctx, p.BuildTimestamp)
	if err != nil {
		return garage_door.RemoteCommand{}, err
	}
	if old != nil {
		age := time.Now().Unix() - old.WrittenAtSeconds
		if age < s.cfg.MinReissueSeconds {
			return garage_door.RemoteCommand{}, ErrTooSoon
		}
	}

	cmd := garage_door.RemoteCommand{
		Session:        sessionOrNew(p.Session),
		BuildTimestamp: p.BuildTimestamp,
		ButtonAckToken: p.ButtonAckToken,
		RequestedBy:    p.RequesterEmail,
	}
	return s.commandRepo.Save(ctx, cmd)
}

// DevicePoll answers one device poll. The stored command is cleared to a noop
// when any of three conditions hold: it carries no ack token (nothing to do),
// the device echoed the token (acknowledged), or it outlived the command
// timeout (abandoned). The response is always the current, possibly
// just-cleared command.
func (s *RemoteCommandService) DevicePoll(ctx context.Context, p PollParams) (garage_door.RemoteCommand, error) {
	old, err := s.commandRepo.LoadCurrent(ctx, p.BuildTimestamp)
	if err != nil {
		return garage_door.RemoteCommand{}, err
	}

	oldAckToken := ""
	ageSeconds := int64(0)
	if old != nil {
		oldAckToken = old.ButtonAckToken
		ageSeconds = time.Now().Unix() - old.WrittenAtSeconds
	}

	noAckToken := old == nil || oldAckToken == ""
	acknowledged := p.ObservedAckToken == oldAckToken
	timedOut := oldAckToken != "" && ageSeconds > s.cfg.CommandTimeoutSeconds

	if !(noAckToken || acknowledged || timedOut) {
		// Keep sending: return the pending command unchanged.
		return *old, nil
	}

	noop := garage_door.RemoteCommand{
		Session:              sessionOrNew(p.Session),
		BuildTimestamp:       p.BuildTimestamp,
		ButtonAckToken:       "",
		CommandHadNoAckToken: noAckToken,
		CommandAcknowledged:  acknowledged,
		CommandTimeout:       timedOut,
		OldAckToken:          oldAckToken,
	}
	return s.commandRepo.Save(ctx, noop)
}

func sessionOrNew(session string) string {
	if session != "" {
		return session
	}
	return uuid.NewString()
}
