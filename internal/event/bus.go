package event

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/sitesmith/internal/event/topic"
)

// Stats contains bus counters.
type Stats struct {
	EventsPublished   uint64
	EventsDelivered   uint64
	EventsDropped     uint64
	HandlerPanics     uint64
	ActiveSubscribers int
	QueueDepth        int
}

type queued struct {
	ctx context.Context
	env Envelope
}

// Bus routes events from publishers to subscribers.
// It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   []*Subscription
	nextID uint64

	config busConfig
	logger *zap.Logger

	// Async worker
	lifecycle sync.Mutex
	running   atomic.Bool
	queue     chan queued
	stop      chan struct{}
	done      chan struct{}

	// Stats
	eventsPublished atomic.Uint64
	eventsDelivered atomic.Uint64
	eventsDropped   atomic.Uint64
	handlerPanics   atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Bus{
		config: config,
		logger: config.logger.Named("event"),
	}
}

// Start launches the async delivery worker.
func (b *Bus) Start() error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if b.running.Load() {
		return ErrBusAlreadyRunning
	}
	b.queue = make(chan queued, b.config.asyncQueueSize)
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	b.running.Store(true)

	go b.worker(b.queue, b.stop, b.done)
	return nil
}

// Stop drains queued events and stops the worker. It returns ctx.Err() if
// draining does not finish in time.
func (b *Bus) Stop(ctx context.Context) error {
	b.lifecycle.Lock()
	if !b.running.Swap(false) {
		b.lifecycle.Unlock()
		return ErrBusNotRunning
	}
	close(b.stop)
	done := b.done
	b.lifecycle.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns true if the async worker is running.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

func (b *Bus) worker(queue chan queued, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case q := <-queue:
			b.deliver(q.ctx, q.env)
		case <-stop:
			// Drain what was accepted before Stop.
			for {
				select {
				case q := <-queue:
					b.deliver(q.ctx, q.env)
				default:
					return
				}
			}
		}
	}
}

// Subscribe registers handler for every topic matching pattern.
func (b *Bus) Subscribe(pattern topic.Topic, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, pattern: pattern, handler: handler, bus: b}
	sub.active.Store(true)
	b.subs = append(b.subs, sub)
	return sub, nil
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = slices.DeleteFunc(b.subs, func(s *Subscription) bool { return s.id == id })
}

// Publish delivers env to all matching subscribers on the calling goroutine,
// in subscription order.
func (b *Bus) Publish(ctx context.Context, env Envelope) error {
	if !env.Topic.IsValid() || env.Topic.IsWildcard() {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, env.Topic)
	}
	b.eventsPublished.Add(1)
	b.deliver(ctx, env)
	return nil
}

// PublishAsync queues env for delivery by the bus worker. It never blocks; a
// full queue drops the event and returns ErrQueueFull.
func (b *Bus) PublishAsync(ctx context.Context, env Envelope) error {
	if !env.Topic.IsValid() || env.Topic.IsWildcard() {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, env.Topic)
	}

	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if !b.running.Load() {
		return ErrBusNotRunning
	}
	select {
	case b.queue <- queued{ctx: context.WithoutCancel(ctx), env: env}:
		b.eventsPublished.Add(1)
		return nil
	default:
		b.eventsDropped.Add(1)
		b.logger.Warn("event dropped", zap.String("topic", env.Topic.String()))
		return ErrQueueFull
	}
}

func (b *Bus) matching(t topic.Topic) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*Subscription
	for _, s := range b.subs {
		if t.Matches(s.pattern) {
			out = append(out, s)
		}
	}
	return out
}

func (b *Bus) deliver(ctx context.Context, env Envelope) {
	for _, sub := range b.matching(env.Topic) {
		if !sub.IsActive() {
			continue
		}
		if b.safeCall(ctx, sub, env) {
			b.eventsDelivered.Add(1)
		}
	}
}

// safeCall runs a handler, recovering from panics.
func (b *Bus) safeCall(ctx context.Context, sub *Subscription, env Envelope) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			b.logger.Error("event handler panicked",
				zap.String("topic", env.Topic.String()),
				zap.String("pattern", sub.pattern.String()),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			ok = false
		}
	}()
	sub.handler(ctx, env)
	return true
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := len(b.subs)
	b.mu.RUnlock()

	b.lifecycle.Lock()
	depth := 0
	if b.queue != nil {
		depth = len(b.queue)
	}
	b.lifecycle.Unlock()

	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		EventsDelivered:   b.eventsDelivered.Load(),
		EventsDropped:     b.eventsDropped.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: active,
		QueueDepth:        depth,
	}
}
