package service

import (
	"garage_door"
)

// Each magnetic end-stop sensor reads "0" when the magnet is on the sensor and
// "1" when it is away. A missing or malformed value reads as notSet, which no
// sensor-driven transition matches; only elapsed-time escalations can fire on
// such a snapshot (the scheduled sweep relies on this).
type sensorReading int

const (
	readingNotSet sensorReading = iota
	readingTriggered
	readingReleased
)

func decodeSensor(value string) sensorReading {
	switch value {
	case "0":
		return readingTriggered
	case "1":
		return readingReleased
	default:
		return readingNotSet
	}
}

// NextEvent is the sensor event interpreter: given the previous event (nil if
// the device never reported), a fresh two-sensor snapshot, and the current
// time, it returns the new event, or nil for "no state change; just refresh
// the check-in time". It is a total, deterministic function; a sensor fault is
// expressed as the ERROR_SENSOR_CONFLICT state, not an error.
//
// tooLongSeconds is the in-motion escalation threshold, measured from the
// in-motion event's own timestamp.
func NextEvent(prev *garage_door.SensorEvent, snap garage_door.SensorSnapshot, nowSeconds, tooLongSeconds int64) *garage_door.SensorEvent {
	closedSensor := decodeSensor(snap.SensorA)
	openSensor := decodeSensor(snap.SensorB)

	// Instantaneous read of the 2x2 truth table.
	conflict := closedSensor == readingTriggered && openSensor == readingTriggered
	readsClosed := closedSensor == readingTriggered && openSensor != readingTriggered
	readsOpen := closedSensor != readingTriggered && openSensor == readingTriggered

	if prev == nil {
		// First-ever reading always produces a definite event.
		switch {
		case conflict:
			return eventOf(garage_door.StateErrorSensorConflict, nowSeconds)
		case readsClosed:
			return eventOf(garage_door.StateClosed, nowSeconds)
		case readsOpen:
			return eventOf(garage_door.StateOpen, nowSeconds)
		default:
			return eventOf(garage_door.StateUnknown, nowSeconds)
		}
	}

	prevDurationSeconds := nowSeconds - prev.TimestampSeconds

	switch prev.Type {
	case garage_door.StateUnknown:
		switch {
		case conflict:
			return eventOf(garage_door.StateErrorSensorConflict, nowSeconds)
		case readsClosed:
			return eventOf(garage_door.StateClosed, nowSeconds)
		case readsOpen:
			return eventOf(garage_door.StateOpen, nowSeconds)
		}
		return nil // no change

	case garage_door.StateErrorSensorConflict:
		// A repeated conflict is not a new event; any definite reading recovers.
		switch {
		case conflict:
			return nil
		case readsClosed:
			return eventOf(garage_door.StateClosed, nowSeconds)
		case readsOpen:
			return eventOf(garage_door.StateOpen, nowSeconds)
		}
		return eventOf(garage_door.StateUnknown, nowSeconds)

	case garage_door.StateClosed:
		switch {
		case conflict:
			return eventOf(garage_door.StateErrorSensorConflict, nowSeconds)
		case readsClosed:
			return nil
		case readsOpen:
			return eventOf(garage_door.StateOpen, nowSeconds)
		case closedSensor == readingReleased:
			// Left the closed end-stop without reaching the open one.
			return eventOf(garage_door.StateOpening, nowSeconds)
		}
		return nil

	case garage_door.StateOpening:
		switch {
		case conflict:
			return eventOf(garage_door.StateErrorSensorConflict, nowSeconds)
		case readsClosed:
			return eventOf(garage_door.StateClosed, nowSeconds)
		case readsOpen:
			return eventOf(garage_door.StateOpen, nowSeconds)
		case prevDurationSeconds > tooLongSeconds:
			return eventOf(garage_door.StateOpeningTooLong, nowSeconds)
		}
		return nil

	case garage_door.StateOpeningTooLong:
		switch {
		case conflict:
			return eventOf(garage_door.StateErrorSensorConflict, nowSeconds)
		case readsClosed:
			return eventOf(garage_door.StateClosed, nowSeconds)
		case readsOpen:
			return eventOf(garage_door.StateOpen, nowSeconds)
		}
		return nil

	case garage_door.StateOpen:
		switch {
		case conflict:
			return eventOf(garage_door.StateErrorSensorConflict, nowSeconds)
		case readsClosed:
			return eventOf(garage_door.StateClosed, nowSeconds)
		case readsOpen:
			return nil
		case openSensor == readingReleased:
			// Left the open end-stop without reaching the closed one.
			return eventOf(garage_door.StateClosing, nowSeconds)
		}
		return nil

	case garage_door.StateClosing:
		switch {
		case conflict:
			return eventOf(garage_door.StateErrorSensorConflict, nowSeconds)
		case readsClosed:
			return eventOf(garage_door.StateClosed, nowSeconds)
		case readsOpen:
			return eventOf(garage_door.StateOpen, nowSeconds)
		case prevDurationSeconds > tooLongSeconds:
			return eventOf(garage_door.StateClosingTooLong, nowSeconds)
		}
		return nil

	case garage_door.StateClosingTooLong:
		switch {
		case conflict:
			return eventOf(garage_door.StateErrorSensorConflict, nowSeconds)
		case readsClosed:
			return eventOf(garage_door.StateClosed, nowSeconds)
		case readsOpen:
			return eventOf(garage_door.StateOpen, nowSeconds)
		}
		return nil

	default:
		// Unrecognized stored state: recover with a definite reading.
		switch {
		case conflict:
			return eventOf(garage_door.StateErrorSensorConflict, nowSeconds)
		case readsClosed:
			return eventOf(garage_door.StateClosed, nowSeconds)
		case readsOpen:
			return eventOf(garage_door.StateOpen, nowSeconds)
		}
		return eventOf(garage_door.StateUnknown, nowSeconds)
	}
}

func eventOf(state garage_door.DoorState, ts int64) *garage_door.SensorEvent {
	ev := garage_door.NewSensorEvent(state, ts)
	return &ev
}
