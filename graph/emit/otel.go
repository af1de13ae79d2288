package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter turns each event into a point-in-time span: name is event.Msg
// ("superstep_start", "task_error", ...), attributes carry RunID/Step/NodeID
// plus whatever Meta holds. Spans are started and ended immediately since
// events mark instants, not durations already captured elsewhere (a task's
// own duration is recorded via the "duration_ms" meta key as an attribute).
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter wraps an OpenTelemetry tracer, e.g. otel.Tracer("pregel").
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	o.annotate(span, event)
	span.End()
}

func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		_, span := o.tracer.Start(ctx, event.Msg)
		o.annotate(span, event)
		span.End()
	}
	return nil
}

// Flush forces the active tracer provider to export pending spans, if it
// supports ForceFlush (the SDK provider does; the global no-op one doesn't).
func (o *OTelEmitter) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func (o *OTelEmitter) annotate(span trace.Span, event Event) {
	span.SetAttributes(
		attribute.String("pregel.thread_id", event.RunID),
		attribute.Int("pregel.step", event.Step),
		attribute.String("pregel.node_id", event.NodeID),
	)
	o.addMeta(span, event.Meta)
	if errStr, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errStr)
		span.RecordError(fmt.Errorf("%s", errStr))
	}
}

// addMeta maps task-lifecycle metadata to pregel.* span attributes,
// renaming the keys a Driver commonly reports (duration, retry attempt,
// cache outcome) to their namespaced form and falling back to the raw key
// for anything else.
func (o *OTelEmitter) addMeta(span trace.Span, meta map[string]interface{}) {
	for key, value := range meta {
		attrKey := key
		switch key {
		case "duration_ms":
			attrKey = "pregel.task.duration_ms"
		case "attempt":
			attrKey = "pregel.task.attempt"
		case "checkpoint_id":
			attrKey = "pregel.checkpoint_id"
		case "cache_hit":
			attrKey = "pregel.cache.hit"
		}

		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		case time.Duration:
			span.SetAttributes(attribute.Int64(attrKey, int64(v/time.Millisecond)))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
}
