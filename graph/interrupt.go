package graph

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// When distinguishes a static interrupt configured before or after a node
//.
type When int

const (
	Before When = iota
	After
)

// Interrupt is a paused-execution record.
type Interrupt struct {
	ID           string
	ThreadID     string
	Node         string
	When         When
	Step         int
	CheckpointID string
	Timestamp    time.Time
	Meta         Value
}

// Error lets *Interrupt satisfy the error interface so it can be returned
// from an Executor as the distinguished "inline interrupt" variant
//.
func (i *Interrupt) Error() string {
	return "graph: interrupt " + i.ID + " at node " + i.Node
}

// NewInterrupt constructs an inline interrupt raised from within an
// executor. The driver stamps ThreadID, Step, and CheckpointID when it
// catches the error.
func NewInterrupt(meta Value) *Interrupt {
	return &Interrupt{ID: uuid.NewString(), Meta: meta, Timestamp: time.Now()}
}

// ErrNotInterrupted is returned when a caller asks to resume a run that is
// not currently paused.
var ErrNotInterrupted = errors.New("graph: run is not interrupted")

// asInterrupt reports whether err is (or wraps) an *Interrupt.
func asInterrupt(err error) (*Interrupt, bool) {
	var in *Interrupt
	if errors.As(err, &in) {
		return in, true
	}
	return nil, false
}

// resumeTracker holds the state needed to service the resume protocol
// across a single Run/Resume cycle: whether we are replaying into a paused
// point, and the resume values a Command.resume (or caller override) makes
// available to pending inline interrupts, consumed in deterministic task
// path order.
type resumeTracker struct {
	resuming    bool
	single      Value
	hasSingle   bool
	byID        map[string]Value
	pending     []*Interrupt // ordered by task path, most recent pause first
}

func (r *resumeTracker) valueFor(in *Interrupt) (Value, bool) {
	if r == nil {
		return nil, false
	}
	if r.byID != nil {
		if v, ok := r.byID[in.ID]; ok {
			return v, true
		}
	}
	if r.hasSingle {
		v := r.single
		r.hasSingle = false
		return v, true
	}
	return nil, false
}
