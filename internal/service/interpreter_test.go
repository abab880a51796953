package service

import (
	"testing"

	"garage_door"
)

func snapshot(sensorA, sensorB string, at int64) garage_door.SensorSnapshot {
	return garage_door.SensorSnapshot{SensorA: sensorA, SensorB: sensorB, ObservedAtSeconds: at}
}

func prevEvent(state garage_door.DoorState, ts int64) *garage_door.SensorEvent {
	ev := garage_door.NewSensorEvent(state, ts)
	return &ev
}

const testTooLong = 60

func TestNextEvent_FirstReading(t *testing.T) {
	cases := []struct {
		name             string
		sensorA, sensorB string
		want             garage_door.DoorState
	}{
		{"both triggered is a conflict", "0", "0", garage_door.StateErrorSensorConflict},
		{"closed end-stop only", "0", "1", garage_door.StateClosed},
		{"open end-stop only", "1", "0", garage_door.StateOpen},
		{"both released", "1", "1", garage_door.StateUnknown},
		{"no data at all", "", "", garage_door.StateUnknown},
		{"garbage values", "x", "y", garage_door.StateUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextEvent(nil, snapshot(tc.sensorA, tc.sensorB, 100), 100, testTooLong)
			if got == nil {
				t.Fatal("first reading must always produce an event")
			}
			if got.Type != tc.want {
				t.Fatalf("got %s, want %s", got.Type, tc.want)
			}
			if got.TimestampSeconds != 100 || got.CheckInTimestampSeconds != 100 {
				t.Fatalf("timestamps not set to now: %+v", got)
			}
			if got.Message == "" {
				t.Fatalf("event has no message: %+v", got)
			}
		})
	}
}

func TestNextEvent_SensorDrivenTransitions(t *testing.T) {
	cases := []struct {
		name             string
		prev             garage_door.DoorState
		sensorA, sensorB string
		want             garage_door.DoorState // "" means no new event
	}{
		// From UNKNOWN: only definite readings change anything.
		{"unknown stays on ambiguous", garage_door.StateUnknown, "1", "1", ""},
		{"unknown stays on no data", garage_door.StateUnknown, "", "", ""},
		{"unknown to closed", garage_door.StateUnknown, "0", "1", garage_door.StateClosed},
		{"unknown to open", garage_door.StateUnknown, "1", "0", garage_door.StateOpen},
		{"unknown to conflict", garage_door.StateUnknown, "0", "0", garage_door.StateErrorSensorConflict},

		// From CONFLICT: repeating the conflict is not a new event.
		{"conflict repeated", garage_door.StateErrorSensorConflict, "0", "0", ""},
		{"conflict recovers closed", garage_door.StateErrorSensorConflict, "0", "1", garage_door.StateClosed},
		{"conflict recovers open", garage_door.StateErrorSensorConflict, "1", "0", garage_door.StateOpen},
		{"conflict degrades to unknown", garage_door.StateErrorSensorConflict, "1", "1", garage_door.StateUnknown},

		// From CLOSED: leaving the closed end-stop means the door is opening.
		{"closed stays closed", garage_door.StateClosed, "0", "1", ""},
		{"closed to opening on release", garage_door.StateClosed, "1", "1", garage_door.StateOpening},
		{"closed to open directly", garage_door.StateClosed, "1", "0", garage_door.StateOpen},
		{"closed to conflict", garage_door.StateClosed, "0", "0", garage_door.StateErrorSensorConflict},
		{"closed unaffected by missing data", garage_door.StateClosed, "", "", ""},

		// From OPEN: leaving the open end-stop means the door is closing.
		{"open stays open", garage_door.StateOpen, "1", "0", ""},
		{"open to closing on release", garage_door.StateOpen, "1", "1", garage_door.StateClosing},
		{"open to closed directly", garage_door.StateOpen, "0", "1", garage_door.StateClosed},
		{"open to conflict", garage_door.StateOpen, "0", "0", garage_door.StateErrorSensorConflict},
		{"open unaffected by missing data", garage_door.StateOpen, "", "", ""},

		// In-motion states complete on either end-stop.
		{"opening completes", garage_door.StateOpening, "1", "0", garage_door.StateOpen},
		{"opening reversed to closed", garage_door.StateOpening, "0", "1", garage_door.StateClosed},
		{"opening continues", garage_door.StateOpening, "1", "1", ""},
		{"closing completes", garage_door.StateClosing, "0", "1", garage_door.StateClosed},
		{"closing reversed to open", garage_door.StateClosing, "1", "0", garage_door.StateOpen},
		{"closing continues", garage_door.StateClosing, "1", "1", ""},

		// TOO_LONG states recover only on definite readings.
		{"opening too long recovers open", garage_door.StateOpeningTooLong, "1", "0", garage_door.StateOpen},
		{"opening too long recovers closed", garage_door.StateOpeningTooLong, "0", "1", garage_door.StateClosed},
		{"opening too long persists", garage_door.StateOpeningTooLong, "1", "1", ""},
		{"closing too long recovers closed", garage_door.StateClosingTooLong, "0", "1", garage_door.StateClosed},
		{"closing too long recovers open", garage_door.StateClosingTooLong, "1", "0", garage_door.StateOpen},
		{"closing too long persists", garage_door.StateClosingTooLong, "1", "1", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Elapsed time well below the threshold so only sensor-driven
			// transitions can fire.
			got := NextEvent(prevEvent(tc.prev, 1000), snapshot(tc.sensorA, tc.sensorB, 1010), 1010, testTooLong)
			if tc.want == "" {
				if got != nil {
					t.Fatalf("expected no new event, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %s, got no event", tc.want)
			}
			if got.Type != tc.want {
				t.Fatalf("got %s, want %s", got.Type, tc.want)
			}
		})
	}
}

func TestNextEvent_TimeEscalation(t *testing.T) {
	// An in-motion state past the threshold escalates even with no sensor data,
	// which is exactly what the scheduled sweep relies on.
	got := NextEvent(prevEvent(garage_door.StateOpening, 1000), snapshot("", "", 1061), 1061, testTooLong)
	if got == nil || got.Type != garage_door.StateOpeningTooLong {
		t.Fatalf("opening past threshold: got %+v", got)
	}

	got = NextEvent(prevEvent(garage_door.StateClosing, 0), snapshot("1", "1", 61), 61, testTooLong)
	if got == nil || got.Type != garage_door.StateClosingTooLong {
		t.Fatalf("closing past threshold: got %+v", got)
	}

	// Exactly at the threshold is not yet too long.
	got = NextEvent(prevEvent(garage_door.StateOpening, 1000), snapshot("1", "1", 1060), 1060, testTooLong)
	if got != nil {
		t.Fatalf("at threshold should not escalate, got %+v", got)
	}

	// A definite reading wins over the elapsed time.
	got = NextEvent(prevEvent(garage_door.StateClosing, 1000), snapshot("0", "1", 2000), 2000, testTooLong)
	if got == nil || got.Type != garage_door.StateClosed {
		t.Fatalf("end-stop beats escalation: got %+v", got)
	}
}

func TestNextEvent_EscalationDoesNotRepeat(t *testing.T) {
	// Once escalated, staying past the threshold produces no further events;
	// the sweep would otherwise write forever.
	got := NextEvent(prevEvent(garage_door.StateOpeningTooLong, 1000), snapshot("", "", 9000), 9000, testTooLong)
	if got != nil {
		t.Fatalf("expected no event, got %+v", got)
	}
	got = NextEvent(prevEvent(garage_door.StateClosingTooLong, 1000), snapshot("", "", 9000), 9000, testTooLong)
	if got != nil {
		t.Fatalf("expected no event, got %+v", got)
	}
}

func TestNextEvent_UnrecognizedStoredState(t *testing.T) {
	// A stored state this version does not know about recovers on any reading.
	got := NextEvent(prevEvent(garage_door.DoorState("LEGACY"), 1000), snapshot("0", "1", 1010), 1010, testTooLong)
	if got == nil || got.Type != garage_door.StateClosed {
		t.Fatalf("got %+v", got)
	}
	got = NextEvent(prevEvent(garage_door.DoorState("LEGACY"), 1000), snapshot("", "", 1010), 1010, testTooLong)
	if got == nil || got.Type != garage_door.StateUnknown {
		t.Fatalf("got %+v", got)
	}
}
