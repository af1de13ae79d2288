package graph

import (
	"context"
	"sync"
)

// StreamMode selects which event families a stream consumer receives
//.
type StreamMode int

const (
	ModeValues StreamMode = 1 << iota
	ModeUpdates
	ModeCheckpoints
	ModeTasks
	ModeMessages
	ModeTokens
	ModeCustom
)

// ModeDebug is the union of Checkpoints and Tasks.
const ModeDebug = ModeCheckpoints | ModeTasks

// TaskPhase distinguishes the three points in a task's lifecycle a Tasks-mode
// event can report.
type TaskPhase int

const (
	TaskStart TaskPhase = iota
	TaskEnd
	TaskErrorPhase
)

// Event is one stream chunk: a namespaced, mode-tagged, sequence-numbered
// record of something the driver observed.
type Event struct {
	Namespace []string
	Mode      StreamMode
	Sequence  uint64

	// ModeValues: the complete state after a superstep.
	Values Value

	// ModeUpdates: a single node's delta.
	UpdateNode string
	Update     Value

	// ModeCheckpoints: the checkpoint just saved.
	CheckpointID string
	Step         int

	// ModeTasks.
	TaskPhase TaskPhase
	TaskID    string
	TaskNode  string
	TaskInput Value
	TaskOut   Value
	TaskErr   error

	// ModeCustom / ModeMessages / ModeTokens: application payload.
	Custom Value
}

// StreamSink receives Events from a run. Send must not block indefinitely
// for an async consumer; NewChanSink's depth argument bounds the channel
// depth, and a full bounded channel causes the driver to await space. SyncSink is
// provided for callers that want Send to error instead of blocking.
type StreamSink interface {
	Send(ctx context.Context, ev Event) error
}

// ChanSink adapts a buffered channel into a StreamSink: Send awaits space,
// respecting ctx cancellation.
type ChanSink struct {
	ch chan Event
}

// NewChanSink creates a ChanSink with the given buffer depth and returns it
// along with the receive-only channel the caller drains.
func NewChanSink(depth int) (*ChanSink, <-chan Event) {
	ch := make(chan Event, depth)
	return &ChanSink{ch: ch}, ch
}

func (s *ChanSink) Send(ctx context.Context, ev Event) error {
	select {
	case s.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChanSink) close() { close(s.ch) }

// SyncSink wraps a handler function and errors instead of blocking when the
// handler itself errors.
type SyncSink struct {
	Handle func(Event) error
}

func (s *SyncSink) Send(_ context.Context, ev Event) error {
	return s.Handle(ev)
}

// sequencer hands out monotonically increasing sequence numbers across an
// entire run, so cross-superstep ordering is the natural order of issuance
// and within-superstep ordering is preserved by issuance order.
type sequencer struct {
	mu  sync.Mutex
	cur uint64
}

func (s *sequencer) next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur++
	return s.cur
}

// streamer filters and dispatches events against a run's enabled mode set
// and namespace, attaching sequence numbers in emission order.
type streamer struct {
	sink      StreamSink
	enabled   StreamMode
	namespace []string
	seq       *sequencer
}

func newStreamer(sink StreamSink, enabled StreamMode, namespace []string, seq *sequencer) *streamer {
	return &streamer{sink: sink, enabled: enabled, namespace: namespace, seq: seq}
}

func (s *streamer) emit(ctx context.Context, ev Event) error {
	if s == nil || s.sink == nil {
		return nil
	}
	if s.enabled&ev.Mode == 0 && ev.Mode != 0 {
		return nil
	}
	ev.Namespace = s.namespace
	ev.Sequence = s.seq.next()
	return s.sink.Send(ctx, ev)
}

// child returns a streamer scoped to a deeper namespace, sharing the run's
// sequence counter.
func (s *streamer) child(name string) *streamer {
	if s == nil {
		return nil
	}
	ns := append(append([]string(nil), s.namespace...), name)
	return &streamer{sink: s.sink, enabled: s.enabled, namespace: ns, seq: s.seq}
}
