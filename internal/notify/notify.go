// Package notify delivers door-state updates to topic subscribers. The topic
// name is derived deterministically from the device identity, so every
// subscriber interested in one door listens on one well-known topic.
package notify

import (
	"context"
	"strconv"
	"strings"

	"garage_door"
)

// Notifier publishes a string-map payload to a topic. Implementations must be
// safe for concurrent use.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload map[string]string) error
}

const topicPrefix = "door_open-"

// TopicForDevice converts a device identity into a topic name. Bytes outside
// the topic-safe set [A-Za-z0-9-_.~%] are replaced with '.'.
func TopicForDevice(buildTimestamp string) string {
	var b strings.Builder
	b.Grow(len(topicPrefix) + len(buildTimestamp))
	b.WriteString(topicPrefix)
	for i := 0; i < len(buildTimestamp); i++ {
		c := buildTimestamp[i]
		if topicSafe(c) {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func topicSafe(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~' || c == '%':
		return true
	}
	return false
}

// EventPayload flattens a sensor event into the string map carried by push
// messages. The check-in time is always included so subscribers can compute
// "last seen" even when the door state is unchanged.
func EventPayload(ev garage_door.SensorEvent) map[string]string {
	return map[string]string{
		"type":                    string(ev.Type),
		"timestampSeconds":        strconv.FormatInt(ev.TimestampSeconds, 10),
		"message":                 ev.Message,
		"checkInTimestampSeconds": strconv.FormatInt(ev.CheckInTimestampSeconds, 10),
	}
}

// Multi fans one publish out to several notifiers. The first error is
// returned but every notifier is attempted.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, topic string, payload map[string]string) error {
	var firstErr error
	for _, n := range m {
		if err := n.Publish(ctx, topic, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
