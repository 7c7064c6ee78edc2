// Package event provides the in-process event bus.
//
// Workspace sessions, the save path and the reconstruction pipeline publish
// events; the HTTP layer subscribes to stream them to clients. Publishers and
// subscribers never reference each other directly.
//
// # Event Topics
//
// Events use hierarchical topics with dot notation:
//
//	workspace.changed
//	workspace.save.failed
//	pipeline.stage.completed
//
// Subscriptions accept wildcard patterns (see package topic).
//
// # Delivery
//
// Publish delivers synchronously on the caller's goroutine. PublishAsync
// queues the event for the bus worker, which runs between Start and Stop.
// A handler that panics is recovered and logged; other handlers still run.
//
// # Usage
//
//	bus := event.NewBus(event.WithLogger(logger))
//	sub, _ := bus.Subscribe("workspace.*", func(ctx context.Context, env event.Envelope) {
//	    if ev, ok := event.As[workspace.Changed](env); ok {
//	        // ...
//	    }
//	})
//	defer sub.Cancel()
//
//	event.Emit(ctx, bus, "workspace.changed", payload, "workspace")
package event
