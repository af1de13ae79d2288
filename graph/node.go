package graph

import "context"

// Reserved node and channel names.
const (
	Start      = "__start__"
	End        = "__end__"
	TasksChan  = "__tasks__"
	NextChan   = "__next__"
	StateChan  = "state"
)

// Executor is a node's computation: it receives the assembled input Value
// and a RunContext, and returns either a plain Value (merged via reducers
// as an implicit Command.Update) or a *Command, or an error. An
// *Interrupt error pauses the run instead of failing it.
type Executor func(ctx context.Context, input Value, rt *RunContext) (Value, error)

// NodeSpec is the static declaration of a node: its executor, the channels
// that trigger it, the channels it reads for input assembly, and the
// channels it is permitted to write.
type NodeSpec struct {
	Name     string
	Executor Executor
	Triggers []string
	Reads    []string
	Writes   []string

	// Subgraph, if non-nil, makes this node an embedded compiled graph
	// rather than a plain executor.
	Subgraph *SubgraphSpec

	Policy *NodePolicy
}

// readsOf returns the node's read set, defaulting to its triggers when
// Reads is empty.
func (n NodeSpec) readsOf() []string {
	if len(n.Reads) > 0 {
		return n.Reads
	}
	return n.Triggers
}

// RunContext is the ambient per-task execution context passed as an
// executor's second argument:
// current step, node name, stream writer, and store handle. It is never
// process-wide mutable state and is not shared across tasks without
// explicit handoff.
type RunContext struct {
	ThreadID string
	Step     int
	Node     string
	TaskID   string
	ToolCall string

	ctx     context.Context
	stream  *streamer
	store   any
	parent  *Config
	tracker *resumeTracker
}

// Emit lets an executor publish a Custom-mode stream event as a side
// channel write.
func (rt *RunContext) Emit(payload Value) {
	if rt == nil || rt.stream == nil {
		return
	}
	_ = rt.stream.emit(rt.ctx, Event{Mode: ModeCustom, TaskNode: rt.Node, Custom: payload})
}

// Store returns the opaque application-level store handle threaded through
// from driver Options, or nil if none was configured.
func (rt *RunContext) Store() any {
	if rt == nil {
		return nil
	}
	return rt.store
}

// Resume returns the value supplied to satisfy this task's pending inline
// interrupt, if any. A node re-executing after a pause calls this at its
// start to fast-forward past deterministic prefix work instead of raising
// the same interrupt again. The task id is stable across a pause/resume
// cycle (it is derived from the checkpoint id the interrupt paused at), so
// lookups key on it rather than on a fresh interrupt id minted at resume
// time.
func (rt *RunContext) Resume() (Value, bool) {
	if rt == nil || rt.tracker == nil {
		return nil, false
	}
	return rt.tracker.valueFor(&Interrupt{ID: rt.TaskID})
}
