package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/sitesmith/internal/event/topic"
)

// Event represents an event in the system.
// Events are immutable once created.
type Event[T any] struct {
	// Type is the hierarchical event type (e.g., "workspace.save.failed").
	Type topic.Topic

	// Payload contains the event-specific data.
	Payload T

	// Metadata contains standard event information.
	Metadata Metadata
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	// ID is a unique identifier for this event instance.
	ID string `json:"id"`

	// Timestamp is when the event was created.
	Timestamp time.Time `json:"timestamp"`

	// Source identifies the component that published the event.
	Source string `json:"source,omitempty"`
}

// Envelope is the type-erased form of an Event that travels through the bus.
type Envelope struct {
	Topic    topic.Topic `json:"topic"`
	Payload  any         `json:"payload"`
	Metadata Metadata    `json:"metadata"`
}

// NewEvent creates a new event with the given type and payload.
func NewEvent[T any](eventType topic.Topic, payload T, source string) Event[T] {
	return Event[T]{
		Type:    eventType,
		Payload: payload,
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// Envelope returns the type-erased form of the event.
func (e Event[T]) Envelope() Envelope {
	return Envelope{Topic: e.Type, Payload: e.Payload, Metadata: e.Metadata}
}

// As converts an envelope back into a typed event. It returns false when the
// payload is not a T.
func As[T any](env Envelope) (Event[T], bool) {
	p, ok := env.Payload.(T)
	if !ok {
		return Event[T]{}, false
	}
	return Event[T]{Type: env.Topic, Payload: p, Metadata: env.Metadata}, true
}
