package service

import (
	"errors"

	"garage_door"
)

// PushParams is a request to trigger the physical button remotely.
// RequesterEmail must already be authenticated by the caller; the service
// checks it against the allow-list.
type PushParams struct {
	BuildTimestamp string
	RequesterEmail string
	ButtonAckToken string
	Session        string // optional; generated when empty
}

// PollParams is one device poll of the command channel. ObservedAckToken is
// the token of the last command the device executed, empty if none.
type PollParams struct {
	BuildTimestamp   string
	ObservedAckToken string
	Session          string // optional; generated when empty
}

type SnoozeSubmitParams struct {
	BuildTimestamp       string
	RequesterEmail       string
	SnoozeDuration       string // "0h".."12h"
	SnoozeEventTimestamp int64  // must match the current event
}

// SnoozeStatusResult pairs the status with the stored request when one is
// relevant (ACTIVE or EXPIRED).
type SnoozeStatusResult struct {
	Status garage_door.SnoozeStatus   `json:"status"`
	Snooze *garage_door.SnoozeRequest `json:"snooze,omitempty"`
}

// PurgeResult reports how many history rows the retention policy removed (or
// would remove, in dry-run mode).
type PurgeResult struct {
	CutoffSeconds int64 `json:"cutoffSeconds"`
	DryRun        bool  `json:"dryRun"`
	EventRows     int64 `json:"eventRows"`
	CommandRows   int64 `json:"commandRows"`
}

// Domain errors surfaced to the HTTP layer. Handlers map these onto statuses:
// forbidden -> 403, too-soon -> 409, stale/invalid input -> 4xx.
var (
	ErrForbidden       = errors.New("requester is not on the authorized list")
	ErrTooSoon         = errors.New("a remote command was issued too recently")
	ErrNoCurrentEvent  = errors.New("no current event for device")
	ErrStaleEvent      = errors.New("snooze event timestamp does not match current event timestamp")
	ErrInvalidDuration = errors.New("invalid snooze duration")
)
