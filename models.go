package garage_door

// DoorState classifies the door position derived from the two end-stop sensors.
type DoorState string

const (
	StateUnknown             DoorState = "UNKNOWN"
	StateErrorSensorConflict DoorState = "ERROR_SENSOR_CONFLICT"
	StateClosed              DoorState = "CLOSED"
	StateClosing             DoorState = "CLOSING"
	StateClosingTooLong      DoorState = "CLOSING_TOO_LONG"
	StateOpen                DoorState = "OPEN"
	StateOpening             DoorState = "OPENING"
	StateOpeningTooLong      DoorState = "OPENING_TOO_LONG"
)

// SensorSnapshot is one raw device reading. Sensor values are the wire strings
// "0" (end-stop triggered) and "1" (released); anything else means the sensor
// did not report.
type SensorSnapshot struct {
	SensorA           string `json:"sensorA"` // closed-position end-stop
	SensorB           string `json:"sensorB"` // open-position end-stop
	ObservedAtSeconds int64  `json:"observedAtSeconds"`
}

// SensorEvent is one confirmed door-state change.
// TimestampSeconds is when the state last changed; CheckInTimestampSeconds is
// when the device last reported, advanced even when the state does not change.
type SensorEvent struct {
	Type                    DoorState `json:"type"`
	TimestampSeconds        int64     `json:"timestampSeconds"`
	Message                 string    `json:"message"`
	CheckInTimestampSeconds int64     `json:"checkInTimestampSeconds"`
}

// NewSensorEvent builds an event for the given state with both timestamps set
// to ts and the state's standard message.
func NewSensorEvent(state DoorState, ts int64) SensorEvent {
	return SensorEvent{
		Type:                    state,
		TimestampSeconds:        ts,
		CheckInTimestampSeconds: ts,
		Message:                 stateMessage(state),
	}
}

func stateMessage(state DoorState) string {
	switch state {
	case StateUnknown:
		return "No sensor data."
	case StateErrorSensorConflict:
		return "The sensors say the door is both open and closed at the same time."
	case StateClosed:
		return "The door is closed."
	case StateClosing:
		return "The door is closing."
	case StateClosingTooLong:
		return "The door was closing but never closed."
	case StateOpen:
		return "The door is open."
	case StateOpening:
		return "The door is opening."
	case StateOpeningTooLong:
		return "The door was opening but never successfully opened."
	default:
		return ""
	}
}

// EventRecord is the persisted per-device event document. PreviousEvent is nil
// for the first event of a device. WrittenAtSeconds is assigned by the store
// on every write.
type EventRecord struct {
	BuildTimestamp   string       `json:"buildTimestamp"`
	CurrentEvent     SensorEvent  `json:"currentEvent"`
	PreviousEvent    *SensorEvent `json:"previousEvent,omitempty"`
	WrittenAtSeconds int64        `json:"writtenAtSeconds"`
}

// RemoteCommand is the single outstanding actuation command for one device.
// An empty ButtonAckToken means no pending command. The three reason flags
// record which condition cleared the previous command, for diagnosability.
type RemoteCommand struct {
	Session        string `json:"session"`
	BuildTimestamp string `json:"buildTimestamp"`
	ButtonAckToken string `json:"buttonAckToken"`
	RequestedBy    string `json:"requestedBy,omitempty"`

	CommandHadNoAckToken bool   `json:"commandHadNoAckToken,omitempty"`
	CommandAcknowledged  bool   `json:"commandAcknowledged,omitempty"`
	CommandTimeout       bool   `json:"commandTimeout,omitempty"`
	OldAckToken          string `json:"oldAckToken,omitempty"`

	WrittenAtSeconds int64 `json:"writtenAtSeconds"`
}

// Pending reports whether the command is still waiting for a device ack.
func (c RemoteCommand) Pending() bool { return c.ButtonAckToken != "" }

// SnoozeRequest suppresses open-door reminders until SnoozeEndTimeSeconds,
// and only while CurrentEventTimestampSeconds still matches the device's
// current event.
type SnoozeRequest struct {
	CurrentEventTimestampSeconds int64  `json:"currentEventTimestampSeconds"`
	SnoozeRequestSeconds         int64  `json:"snoozeRequestSeconds"`
	SnoozeDuration               string `json:"snoozeDuration"`
	SnoozeEndTimeSeconds         int64  `json:"snoozeEndTimeSeconds"`
}

// SnoozeStatus is the answer to "is a snooze in effect right now".
type SnoozeStatus string

const (
	SnoozeNone    SnoozeStatus = "NONE"
	SnoozeActive  SnoozeStatus = "ACTIVE"
	SnoozeExpired SnoozeStatus = "EXPIRED"
)

// User is an operator account that may be granted remote-button access.
type User struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // never serialized
}
