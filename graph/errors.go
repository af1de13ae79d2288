package graph

import (
	"errors"
	"fmt"
)

// ErrValidation is returned at Compile time when the graph topology refers
// to an unknown node or channel.
var ErrValidation = errors.New("graph: validation error")

// ErrMaxStepsExceeded guards against a runaway execution that never
// reaches quiescence.
var ErrMaxStepsExceeded = errors.New("graph: execution exceeded maximum superstep limit")

// ExecutorError wraps an error returned by a node's Executor. Subject to
// retry policy before it is considered fatal.
type ExecutorError struct {
	Node    string
	TaskID  string
	Attempt int
	Cause   error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("graph: node %q (task %s, attempt %d): %v", e.Node, e.TaskID, e.Attempt, e.Cause)
}

func (e *ExecutorError) Unwrap() error { return e.Cause }

// RunError is the structured, kind-distinguishing error Run/Resume returns
// on failure. The last successfully
// saved checkpoint remains reachable via the Saver regardless of Kind.
type RunError struct {
	Kind             ErrorKind
	LastCheckpointID string
	Cause            error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("graph: run failed (%s): %v", e.Kind, e.Cause)
}

func (e *RunError) Unwrap() error { return e.Cause }

// ErrorKind enumerates the distinguished failure categories Run/Resume can
// report.
type ErrorKind string

const (
	KindInvalidUpdate    ErrorKind = "invalid_update"
	KindCheckpointShape  ErrorKind = "checkpoint_shape"
	KindExecutor         ErrorKind = "executor"
	KindMissingConfig    ErrorKind = "missing_config"
	KindValidation       ErrorKind = "validation"
	KindNotInterrupted   ErrorKind = "not_interrupted"
	KindMaxStepsExceeded ErrorKind = "max_steps_exceeded"

	// KindInterrupt marks a pause, not a failure: a static interrupt_before/
	// interrupt_after boundary or a node raising *Interrupt. The checkpoint
	// is resumable via Resume/ResumeByID, unlike every other kind above.
	KindInterrupt ErrorKind = "interrupt"
)
