package graph

import "fmt"

// ErrEmptyChannel is returned by Get when the channel holds no value
//. The scheduler treats it as an
// absent field, not a failure.
var ErrEmptyChannel = fmt.Errorf("channel: empty")

// ErrInvalidUpdate is returned when a channel's discipline rejects an
// update, e.g. LastValue receiving more than one value in a superstep
//. Fatal to the superstep.
var ErrInvalidUpdate = fmt.Errorf("channel: invalid update")

// ErrNotCheckpointable is returned by Untracked.Checkpoint.
var ErrNotCheckpointable = fmt.Errorf("channel: not checkpointable")

// ErrInvalidCheckpoint is returned when FromCheckpoint is given a value of
// the wrong shape for the channel variant.
var ErrInvalidCheckpoint = fmt.Errorf("channel: invalid checkpoint shape")

// Channel is a named, versioned, disciplined slot holding a Value. It is the
// sole medium of communication between nodes.
//
// Implementations are not safe for concurrent use; the driver is the
// exclusive owner of the live channel map during a run.
type Channel interface {
	// Get returns the channel's current value, or ErrEmptyChannel if the
	// channel holds nothing available yet.
	Get() (Value, error)

	// Update applies new values per the channel's discipline and reports
	// whether the channel's content changed.
	Update(values []Value) (changed bool, err error)

	// Checkpoint serializes the channel's contents for persistence.
	Checkpoint() (Value, error)

	// FromCheckpoint restores contents previously produced by Checkpoint.
	FromCheckpoint(Value) error

	// IsAvailable reports whether Get would currently succeed.
	IsAvailable() bool

	// Consume clears transient content (Ephemeral, LastValueAfterFinish);
	// it is a no-op returning false for every other variant.
	Consume() (cleared bool)

	// Finish transitions accumulate-then-reveal channels (LastValueAfterFinish)
	// into their revealed state; a no-op returning false elsewhere.
	Finish() (transitioned bool)
}

// NewChannel constructs a fresh, empty channel of the given kind.
func NewChannel(kind ChannelKind, opts ...ChannelOption) Channel {
	cfg := channelConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	switch kind {
	case KindLastValue:
		return &LastValueChannel{anyValue: cfg.anyValue}
	case KindTopic:
		return &TopicChannel{}
	case KindBinaryOp:
		return &BinaryOpChannel{combine: cfg.combine}
	case KindEphemeral:
		return &EphemeralChannel{guard: cfg.guard}
	case KindUntracked:
		return &UntrackedChannel{}
	case KindLastValueAfterFinish:
		return &LastValueAfterFinishChannel{}
	case KindNamedBarrier:
		return &NamedBarrierChannel{required: cfg.required, received: map[string]bool{}}
	default:
		panic(fmt.Sprintf("graph: unknown channel kind %v", kind))
	}
}

// ChannelKind enumerates the channel variants. Channels are modeled as
// a tagged-variant enumeration with a common operation set rather than as
// implementation inheritance; each kind below is a distinct, hand-written
// Channel implementation.
type ChannelKind int

const (
	KindLastValue ChannelKind = iota
	KindTopic
	KindBinaryOp
	KindEphemeral
	KindUntracked
	KindLastValueAfterFinish
	KindNamedBarrier
)

type channelConfig struct {
	anyValue bool
	guard    bool
	combine  func(acc, next Value) Value
	required []string
}

// ChannelOption configures a channel at construction time.
type ChannelOption func(*channelConfig)

// WithAnyValue relaxes LastValue so that multiple writes in one superstep
// silently take the last one instead of erroring.
func WithAnyValue() ChannelOption {
	return func(c *channelConfig) { c.anyValue = true }
}

// WithGuard enables the ">1 values is an error" guard on Ephemeral
// channels.
func WithGuard() ChannelOption {
	return func(c *channelConfig) { c.guard = true }
}

// WithCombiner supplies the associative reducer for a BinaryOp channel.
func WithCombiner(combine func(acc, next Value) Value) ChannelOption {
	return func(c *channelConfig) { c.combine = combine }
}

// WithRequiredSignals supplies the required signal-name set for a
// NamedBarrier channel.
func WithRequiredSignals(names ...string) ChannelOption {
	return func(c *channelConfig) { c.required = names }
}

// --- LastValue -------------------------------------------------------------

// LastValueChannel holds exactly one value per superstep. Receiving more
// than one write in a single update errors unless anyValue relaxation is
// enabled, in which case the last write silently wins.
type LastValueChannel struct {
	value    Value
	set      bool
	anyValue bool
}

func (c *LastValueChannel) Get() (Value, error) {
	if !c.set {
		return nil, ErrEmptyChannel
	}
	return c.value, nil
}

func (c *LastValueChannel) Update(values []Value) (bool, error) {
	if len(values) == 0 {
		return false, nil
	}
	if len(values) > 1 && !c.anyValue {
		return false, ErrInvalidUpdate
	}
	c.value = values[len(values)-1]
	c.set = true
	return true, nil
}

func (c *LastValueChannel) Checkpoint() (Value, error) {
	if !c.set {
		return nil, nil
	}
	return c.value, nil
}

func (c *LastValueChannel) FromCheckpoint(v Value) error {
	if v == nil {
		c.set = false
		c.value = nil
		return nil
	}
	c.value = v
	c.set = true
	return nil
}

func (c *LastValueChannel) IsAvailable() bool { return c.set }
func (c *LastValueChannel) Consume() bool     { return false }
func (c *LastValueChannel) Finish() bool      { return false }

// --- Topic -------------------------------------------------------------

// TopicChannel appends every written value to an ordered list and is
// available once non-empty.
type TopicChannel struct {
	values []Value
}

func (c *TopicChannel) Get() (Value, error) {
	if len(c.values) == 0 {
		return nil, ErrEmptyChannel
	}
	out := make([]Value, len(c.values))
	copy(out, c.values)
	return out, nil
}

func (c *TopicChannel) Update(values []Value) (bool, error) {
	if len(values) == 0 {
		return false, nil
	}
	c.values = append(c.values, values...)
	return true, nil
}

func (c *TopicChannel) Checkpoint() (Value, error) {
	out := make([]Value, len(c.values))
	copy(out, c.values)
	return out, nil
}

func (c *TopicChannel) FromCheckpoint(v Value) error {
	if v == nil {
		c.values = nil
		return nil
	}
	items, ok := v.([]Value)
	if !ok {
		return ErrInvalidCheckpoint
	}
	c.values = append([]Value(nil), items...)
	return nil
}

func (c *TopicChannel) IsAvailable() bool { return len(c.values) > 0 }
func (c *TopicChannel) Consume() bool     { return false }
func (c *TopicChannel) Finish() bool      { return false }

// --- BinaryOp -------------------------------------------------------------

// BinaryOpChannel reduces written values via a user-supplied associative
// combiner. The first value to ever arrive becomes the accumulator
// unmodified (identity-free); later updates fold left in insertion order
//.
type BinaryOpChannel struct {
	value   Value
	set     bool
	combine func(acc, next Value) Value
}

func (c *BinaryOpChannel) Get() (Value, error) {
	if !c.set {
		return nil, ErrEmptyChannel
	}
	return c.value, nil
}

func (c *BinaryOpChannel) Update(values []Value) (bool, error) {
	if len(values) == 0 {
		return false, nil
	}
	for _, v := range values {
		if !c.set {
			c.value = v
			c.set = true
			continue
		}
		c.value = c.combine(c.value, v)
	}
	return true, nil
}

func (c *BinaryOpChannel) Checkpoint() (Value, error) {
	if !c.set {
		return nil, nil
	}
	return c.value, nil
}

func (c *BinaryOpChannel) FromCheckpoint(v Value) error {
	if v == nil {
		c.set = false
		c.value = nil
		return nil
	}
	c.value = v
	c.set = true
	return nil
}

func (c *BinaryOpChannel) IsAvailable() bool { return c.set }
func (c *BinaryOpChannel) Consume() bool     { return false }
func (c *BinaryOpChannel) Finish() bool      { return false }

// --- Ephemeral -------------------------------------------------------------

// EphemeralChannel behaves like LastValue but Consume clears it; an
// empty-length update also clears it.
type EphemeralChannel struct {
	value Value
	set   bool
	guard bool
}

func (c *EphemeralChannel) Get() (Value, error) {
	if !c.set {
		return nil, ErrEmptyChannel
	}
	return c.value, nil
}

func (c *EphemeralChannel) Update(values []Value) (bool, error) {
	if len(values) == 0 {
		wasSet := c.set
		c.set = false
		c.value = nil
		return wasSet, nil
	}
	if c.guard && len(values) > 1 {
		return false, ErrInvalidUpdate
	}
	c.value = values[len(values)-1]
	c.set = true
	return true, nil
}

func (c *EphemeralChannel) Checkpoint() (Value, error) {
	if !c.set {
		return nil, nil
	}
	return c.value, nil
}

func (c *EphemeralChannel) FromCheckpoint(v Value) error {
	if v == nil {
		c.set = false
		c.value = nil
		return nil
	}
	c.value = v
	c.set = true
	return nil
}

func (c *EphemeralChannel) IsAvailable() bool { return c.set }

func (c *EphemeralChannel) Consume() bool {
	wasSet := c.set
	c.set = false
	c.value = nil
	return wasSet
}

func (c *EphemeralChannel) Finish() bool { return false }

// --- Untracked -------------------------------------------------------------

// UntrackedChannel behaves like LastValue in memory but never persists:
// Checkpoint always fails and FromCheckpoint is a no-op that always
// succeeds.
type UntrackedChannel struct {
	value Value
	set   bool
}

func (c *UntrackedChannel) Get() (Value, error) {
	if !c.set {
		return nil, ErrEmptyChannel
	}
	return c.value, nil
}

func (c *UntrackedChannel) Update(values []Value) (bool, error) {
	if len(values) == 0 {
		return false, nil
	}
	if len(values) > 1 {
		return false, ErrInvalidUpdate
	}
	c.value = values[0]
	c.set = true
	return true, nil
}

func (c *UntrackedChannel) Checkpoint() (Value, error) {
	return nil, ErrNotCheckpointable
}

func (c *UntrackedChannel) FromCheckpoint(Value) error { return nil }
func (c *UntrackedChannel) IsAvailable() bool          { return c.set }
func (c *UntrackedChannel) Consume() bool              { return false }
func (c *UntrackedChannel) Finish() bool               { return false }

// --- LastValueAfterFinish -------------------------------------------------------------

// LastValueAfterFinishChannel accumulates writes hidden from Get until
// Finish reveals the latest one; any subsequent Update resets the finished
// flag.
type LastValueAfterFinishChannel struct {
	value    Value
	set      bool
	finished bool
}

func (c *LastValueAfterFinishChannel) Get() (Value, error) {
	if !c.finished {
		return nil, ErrEmptyChannel
	}
	return c.value, nil
}

func (c *LastValueAfterFinishChannel) Update(values []Value) (bool, error) {
	c.finished = false
	if len(values) == 0 {
		return false, nil
	}
	if len(values) > 1 {
		return false, ErrInvalidUpdate
	}
	c.value = values[0]
	c.set = true
	return true, nil
}

func (c *LastValueAfterFinishChannel) Checkpoint() (Value, error) {
	return map[string]Value{"value": c.value, "finished": c.finished}, nil
}

func (c *LastValueAfterFinishChannel) FromCheckpoint(v Value) error {
	if v == nil {
		c.value, c.set, c.finished = nil, false, false
		return nil
	}
	m, ok := v.(map[string]Value)
	if !ok {
		return ErrInvalidCheckpoint
	}
	c.value = m["value"]
	c.set = c.value != nil
	finished, _ := m["finished"].(bool)
	c.finished = finished
	return nil
}

func (c *LastValueAfterFinishChannel) IsAvailable() bool { return c.finished }

func (c *LastValueAfterFinishChannel) Consume() bool {
	wasFinished := c.finished
	c.value, c.set, c.finished = nil, false, false
	return wasFinished
}

func (c *LastValueAfterFinishChannel) Finish() bool {
	if c.finished || !c.set {
		return false
	}
	c.finished = true
	return true
}

// --- NamedBarrier -------------------------------------------------------------

// NamedBarrierChannel accepts string "signals" and becomes available once
// every name in its required set has been received.
type NamedBarrierChannel struct {
	required []string
	received map[string]bool
}

func (c *NamedBarrierChannel) Get() (Value, error) {
	if !c.IsAvailable() {
		return nil, ErrEmptyChannel
	}
	names := make([]Value, 0, len(c.received))
	for _, n := range c.required {
		names = append(names, n)
	}
	return names, nil
}

func (c *NamedBarrierChannel) Update(values []Value) (bool, error) {
	changed := false
	required := map[string]bool{}
	for _, n := range c.required {
		required[n] = true
	}
	for _, v := range values {
		name, ok := v.(string)
		if !ok || !required[name] || c.received[name] {
			continue
		}
		c.received[name] = true
		changed = true
	}
	return changed, nil
}

func (c *NamedBarrierChannel) Checkpoint() (Value, error) {
	names := make([]Value, 0, len(c.required))
	for _, n := range c.required {
		names = append(names, n)
	}
	received := make([]Value, 0, len(c.received))
	for n := range c.received {
		received = append(received, n)
	}
	return map[string]Value{"names": names, "received": received}, nil
}

func (c *NamedBarrierChannel) FromCheckpoint(v Value) error {
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]Value)
	if !ok {
		return ErrInvalidCheckpoint
	}
	if names, ok := m["names"].([]Value); ok {
		c.required = c.required[:0]
		for _, n := range names {
			if s, ok := n.(string); ok {
				c.required = append(c.required, s)
			}
		}
	}
	c.received = map[string]bool{}
	if received, ok := m["received"].([]Value); ok {
		for _, n := range received {
			if s, ok := n.(string); ok {
				c.received[s] = true
			}
		}
	}
	return nil
}

func (c *NamedBarrierChannel) IsAvailable() bool {
	for _, n := range c.required {
		if !c.received[n] {
			return false
		}
	}
	return true
}

func (c *NamedBarrierChannel) Consume() bool { return false }
func (c *NamedBarrierChannel) Finish() bool  { return false }
