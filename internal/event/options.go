package event

import "go.uber.org/zap"

// BusOption configures an event Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for the event bus.
type busConfig struct {
	// asyncQueueSize is the size of the async event queue.
	asyncQueueSize int

	// logger receives handler panics and dropped events.
	logger *zap.Logger
}

// defaultBusConfig returns the default configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		asyncQueueSize: 1024,
		logger:         zap.NewNop(),
	}
}

// WithAsyncQueueSize sets the async event queue size.
func WithAsyncQueueSize(size int) BusOption {
	return func(c *busConfig) {
		if size > 0 {
			c.asyncQueueSize = size
		}
	}
}

// WithLogger sets the logger for the bus.
func WithLogger(l *zap.Logger) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
