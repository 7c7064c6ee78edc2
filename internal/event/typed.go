package event

import (
	"context"

	"github.com/dshills/sitesmith/internal/event/topic"
)

// Emit publishes a typed event synchronously.
func Emit[T any](ctx context.Context, b *Bus, t topic.Topic, payload T, source string) error {
	return b.Publish(ctx, NewEvent(t, payload, source).Envelope())
}

// EmitAsync queues a typed event for the bus worker.
func EmitAsync[T any](ctx context.Context, b *Bus, t topic.Topic, payload T, source string) error {
	return b.PublishAsync(ctx, NewEvent(t, payload, source).Envelope())
}
