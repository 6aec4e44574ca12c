// Package audit captures attendance events for the surrounding SaaS
// (dashboards, WhatsApp notifications, compliance exports).
package audit

import (
	"time"

	id "gymgate/pkg/domain"
)

// EventType names what happened at the door.
type EventType string

const (
	EventCheckedIn  EventType = "attendance_checked_in"
	EventCheckedOut EventType = "attendance_checked_out"
	EventDenied     EventType = "attendance_denied"
)

// Event is emitted from the attendance service to capture entry outcomes.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	OrgID       id.OrgID     `json:"-"`
	SubjectID   id.SubjectID `json:"-"`
	SubjectKind string       `json:"subject_kind,omitempty"`
	RecordID    string       `json:"record_id,omitempty"`

	EntryMethod string `json:"entry_method,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
	// Reason carries the denial reason code for EventDenied.
	Reason string `json:"reason,omitempty"`
	// DurationMinutes is set on checkout events.
	DurationMinutes int64 `json:"duration_minutes,omitempty"`
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string `json:"request_id,omitempty"`
}

// wireEvent is the JSON form with ids flattened to strings.
type wireEvent struct {
	Event
	OrgID     string `json:"org_id"`
	SubjectID string `json:"subject_id,omitempty"`
}
