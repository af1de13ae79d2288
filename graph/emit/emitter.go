// Package emit provides the ambient observability backend for a Driver:
// logging, tracing, and in-memory history distinct from the caller-facing
// graph.StreamSink contract.
package emit

import "context"

// Emitter receives events from a Driver's superstep/task lifecycle and
// forwards them to a logging, tracing, or metrics backend.
//
// Implementations should be non-blocking and thread-safe: Emit may be
// called concurrently from multiple in-flight tasks, and must never panic
// or slow down execution.
type Emitter interface {
	// Emit sends a single event. Implementations should not block; buffer
	// or drop on backend failure rather than propagate an error.
	Emit(event Event)

	// EmitBatch sends multiple events in one call, preserving order.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until all buffered events are delivered, or ctx expires.
	// Must be safe to call more than once.
	Flush(ctx context.Context) error
}
