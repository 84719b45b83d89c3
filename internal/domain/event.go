package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventSessionChanged     EventType = "session.changed"
	EventPreferencesChanged EventType = "preferences.changed"
	EventDocumentAdded      EventType = "document.added"
	EventDocumentRemoved    EventType = "document.removed"
	EventDocumentSelected   EventType = "document.selected"
	EventChatMessage        EventType = "chat.message"
	EventChatCleared        EventType = "chat.cleared"

	EventProcessingStarted   EventType = "processing.started"
	EventProcessingCompleted EventType = "processing.completed"
	EventProcessingFailed    EventType = "processing.failed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event with a JSON payload. A payload that cannot be
// marshalled is dropped; the event itself is still useful as a signal.
func NewEvent(t EventType, payload any) Event {
	ev := Event{Type: t, Timestamp: time.Now()}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = raw
		}
	}
	return ev
}

// EventHandler processes a published event.
type EventHandler func(ctx context.Context, event Event)

// EventPublisher publishes events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// EventBus supports typed and wildcard subscriptions.
type EventBus interface {
	EventPublisher
	Subscribe(eventType EventType, handler EventHandler) (unsubscribe func())
	SubscribeAll(handler EventHandler) (unsubscribe func())
	Close()
}

// DocumentEventPayload accompanies document.* events.
type DocumentEventPayload struct {
	ID string `json:"id"`
}

// ProcessingEventPayload accompanies processing.* events.
type ProcessingEventPayload struct {
	Source     string `json:"source"` // "text", "file" or "audio"
	DocumentID string `json:"document_id,omitempty"`
	Error      string `json:"error,omitempty"`
	Code       string `json:"code,omitempty"`
}

// SessionEventPayload accompanies session.changed events.
type SessionEventPayload struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
}

// ChatEventPayload accompanies chat.* events.
type ChatEventPayload struct {
	DocumentID string   `json:"document_id,omitempty"`
	MessageID  string   `json:"message_id,omitempty"`
	Role       ChatRole `json:"role,omitempty"`
}
