package event

import (
	"context"
	"sync/atomic"

	"github.com/dshills/sitesmith/internal/event/topic"
)

// Handler receives events delivered by the bus.
type Handler func(ctx context.Context, env Envelope)

// Subscription is a registered handler for a topic pattern.
type Subscription struct {
	id      uint64
	pattern topic.Topic
	handler Handler
	bus     *Bus
	active  atomic.Bool
}

// Pattern returns the subscribed topic pattern.
func (s *Subscription) Pattern() topic.Topic {
	return s.pattern
}

// IsActive returns true until the subscription is cancelled.
func (s *Subscription) IsActive() bool {
	return s.active.Load()
}

// Cancel removes the subscription from its bus. It is safe to call more than
// once; events already being delivered may still reach the handler.
func (s *Subscription) Cancel() {
	if !s.active.Swap(false) {
		return
	}
	s.bus.remove(s.id)
}
