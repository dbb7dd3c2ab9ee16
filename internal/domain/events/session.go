package events

import "github.com/convoidx/convoidx/internal/domain/types"

// SessionUpdatedPayload is the payload for session:updated events.
type SessionUpdatedPayload = types.SessionListItem

// NewSessionUpdatedEvent creates a new session:updated event.
func NewSessionUpdatedEvent(item types.SessionListItem) *BaseEvent {
	return NewEventWithSession(EventTypeSessionUpdated, item, item.SessionID)
}

// IndexProgressPayload is the payload for index:progress events.
type IndexProgressPayload = types.IndexProgress

// NewIndexProgressEvent creates a new index:progress event.
func NewIndexProgressEvent(progress types.IndexProgress) *BaseEvent {
	return NewEvent(EventTypeIndexProgress, progress)
}
