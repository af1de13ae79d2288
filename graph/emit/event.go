package emit

// Event is an ambient observability record emitted during a thread's
// execution: separate from the caller-facing graph.Event stream contract,
// this is the logging/tracing side-channel a Driver reports against.
//
//   - Superstep start/complete
//   - Task start/complete/error
//   - Checkpoint writes
//   - Interrupt pause/resume
type Event struct {
	// RunID identifies the thread that emitted this event.
	RunID string

	// Step is the superstep number (0-indexed). Zero for thread-level
	// events (start, complete, error).
	Step int

	// NodeID identifies which node emitted this event. Empty for
	// thread-level events.
	NodeID string

	// Msg is a human-readable description of the event.
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": task or superstep duration in milliseconds
	//   - "error": error details
	//   - "checkpoint_id": checkpoint identifier
	//   - "attempt": retry attempt number
	Meta map[string]interface{}
}
