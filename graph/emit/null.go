package emit

import "context"

// NullEmitter discards every event. It is the Driver's default when no
// observability backend is configured.
type NullEmitter struct{}

// NewNullEmitter returns an Emitter with zero overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

func (n *NullEmitter) Emit(Event) {}

func (n *NullEmitter) EmitBatch(context.Context, []Event) error { return nil }

func (n *NullEmitter) Flush(context.Context) error { return nil }
