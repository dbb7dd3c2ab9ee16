// Package events defines the events published on the hub.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// EventTypeSessionUpdated fires after any reingest or archive, carrying
	// the fresh SessionListItem for the affected session.
	EventTypeSessionUpdated EventType = "session:updated"

	// EventTypeIndexProgress fires during bulk indexing on phase transitions
	// and every 500 files processed within a phase.
	EventTypeIndexProgress EventType = "index:progress"
)

// Event is the base interface for all events.
type Event interface {
	// Type returns the event type.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// ToJSON serializes the event to JSON.
	ToJSON() ([]byte, error)

	// GetWorkspaceID returns the workspace ID (may be empty; unused by the
	// single-corpus daemon but kept so Event composes with the hub's
	// generic subscriber plumbing).
	GetWorkspaceID() string

	// GetSessionID returns the session ID (may be empty).
	GetSessionID() string
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType   EventType   `json:"event"`
	EventTime   time.Time   `json:"timestamp"`
	WorkspaceID string      `json:"workspace_id,omitempty"`
	SessionID   string      `json:"session_id,omitempty"`
	Payload     interface{} `json:"payload"`
}

// GetWorkspaceID returns the workspace ID.
func (e *BaseEvent) GetWorkspaceID() string {
	return e.WorkspaceID
}

// GetSessionID returns the session ID.
func (e *BaseEvent) GetSessionID() string {
	return e.SessionID
}

// Type returns the event type.
func (e *BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ToJSON serializes the event to JSON.
func (e *BaseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewEvent creates a new base event with the given type and payload.
func NewEvent(eventType EventType, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
}

// NewEventWithSession creates a new event carrying a session ID for
// correlation.
func NewEventWithSession(eventType EventType, payload interface{}, sessionID string) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		SessionID: sessionID,
		Payload:   payload,
	}
}
