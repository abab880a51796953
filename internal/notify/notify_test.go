package notify

import (
	"context"
	"errors"
	"testing"

	"garage_door"
)

func TestTopicForDevice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"fw-2024", "door_open-fw-2024"},
		{"Feb 18 2023 10:32:01", "door_open-Feb.18.2023.10.32.01"},
		{"a_b.c~d%e", "door_open-a_b.c~d%e"},
		{"slash/plus+", "door_open-slash.plus."},
		{"", "door_open-"},
	}
	for _, tc := range cases {
		if got := TopicForDevice(tc.in); got != tc.want {
			t.Fatalf("TopicForDevice(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEventPayload(t *testing.T) {
	ev := garage_door.SensorEvent{
		Type:                    garage_door.StateOpen,
		TimestampSeconds:        2000,
		Message:                 "The door is open.",
		CheckInTimestampSeconds: 2050,
	}
	got := EventPayload(ev)
	want := map[string]string{
		"type":                    "OPEN",
		"timestampSeconds":        "2000",
		"message":                 "The door is open.",
		"checkInTimestampSeconds": "2050",
	}
	if len(got) != len(want) {
		t.Fatalf("payload keys: got %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("payload[%q]=%q, want %q", k, got[k], v)
		}
	}
}

type recordingNotifier struct {
	calls int
	err   error
}

func (r *recordingNotifier) Publish(ctx context.Context, topic string, payload map[string]string) error {
	r.calls++
	return r.err
}

func TestMulti_AttemptsAllAndReturnsFirstError(t *testing.T) {
	first := &recordingNotifier{err: errors.New("first down")}
	second := &recordingNotifier{err: errors.New("second down")}
	third := &recordingNotifier{}

	err := Multi{first, second, third}.Publish(context.Background(), "door_open-x", map[string]string{"type": "OPEN"})
	if err == nil || err.Error() != "first down" {
		t.Fatalf("expected first error, got %v", err)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Fatalf("not all notifiers attempted: %d %d %d", first.calls, second.calls, third.calls)
	}
}

func TestMulti_EmptyIsNoop(t *testing.T) {
	if err := (Multi{}).Publish(context.Background(), "t", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
