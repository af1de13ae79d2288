package graph

import (
	"time"

	"github.com/oakmere/pregel-go/graph/emit"
)

// Option configures a Driver at construction time via functional options.
type Option func(*driverConfig) error

type driverConfig struct {
	saver         Saver
	maxConcurrent int
	maxSteps      int
	defaultTimeout time.Duration
	defaultRetry  *RetryPolicy
	channels      map[string]ChannelSpec
	reducers      ReducerSchema
	store         any
	streamBuffer  int
	cache         *Cache
	metrics       *Metrics
	interruptBefore map[string]bool
	interruptAfter  map[string]bool
	emitter         emit.Emitter
}

func defaultConfig() *driverConfig {
	return &driverConfig{
		maxConcurrent:   16,
		maxSteps:        10_000,
		defaultTimeout:  0,
		streamBuffer:    64,
		channels:        map[string]ChannelSpec{},
		interruptBefore: map[string]bool{},
		interruptAfter:  map[string]bool{},
		emitter:         emit.NewNullEmitter(),
	}
}

// WithSaver sets the checkpoint saver backing the driver. Without one, Run,
// Stream, Resume and ResumeByID fail with ErrValidation.
func WithSaver(s Saver) Option {
	return func(c *driverConfig) error {
		c.saver = s
		return nil
	}
}

// WithMaxConcurrentTasks bounds how many tasks a single superstep executes
// in parallel.
func WithMaxConcurrentTasks(n int) Option {
	return func(c *driverConfig) error {
		if n > 0 {
			c.maxConcurrent = n
		}
		return nil
	}
}

// WithMaxSteps bounds the number of supersteps a single Run/Resume call may
// execute before it fails with ErrMaxStepsExceeded.
func WithMaxSteps(n int) Option {
	return func(c *driverConfig) error {
		if n > 0 {
			c.maxSteps = n
		}
		return nil
	}
}

// WithDefaultTimeout sets the per-task timeout applied when a NodeSpec's
// Policy doesn't override it.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *driverConfig) error {
		c.defaultTimeout = d
		return nil
	}
}

// WithDefaultRetry sets the retry policy applied when a NodeSpec's Policy
// doesn't override it.
func WithDefaultRetry(r *RetryPolicy) Option {
	return func(c *driverConfig) error {
		c.defaultRetry = r
		return nil
	}
}

// WithChannel registers a channel's static kind/options, needed to
// reconstruct it from a checkpoint on resume or fork.
func WithChannel(name string, kind ChannelKind, opts ...ChannelOption) Option {
	return func(c *driverConfig) error {
		c.channels[name] = ChannelSpec{Kind: kind, Options: opts}
		return nil
	}
}

// WithReducers sets the per-field reducer schema used to merge concurrent
// writes into the state channel.
func WithReducers(schema ReducerSchema) Option {
	return func(c *driverConfig) error {
		c.reducers = schema
		return nil
	}
}

// WithStore threads an opaque application-level handle (e.g. a long-lived
// DB pool) through to every RunContext.Store() call.
func WithStore(store any) Option {
	return func(c *driverConfig) error {
		c.store = store
		return nil
	}
}

// WithStreamBuffer records a stream buffer depth in the driver config. The
// driver does not read it: a ChanSink's depth is the argument passed to
// NewChanSink.
func WithStreamBuffer(n int) Option {
	return func(c *driverConfig) error {
		if n > 0 {
			c.streamBuffer = n
		}
		return nil
	}
}

// WithCache attaches a node-invocation memoizer.
func WithCache(c2 *Cache) Option {
	return func(c *driverConfig) error {
		c.cache = c2
		return nil
	}
}

// WithMetrics attaches a Prometheus metrics recorder. Without one, metrics
// calls are no-ops.
func WithMetrics(m *Metrics) Option {
	return func(c *driverConfig) error {
		c.metrics = m
		return nil
	}
}

// WithInterruptBefore registers static pre-execution interrupts.
func WithInterruptBefore(nodes ...string) Option {
	return func(c *driverConfig) error {
		for _, n := range nodes {
			c.interruptBefore[n] = true
		}
		return nil
	}
}

// WithInterruptAfter registers static post-execution interrupts.
func WithInterruptAfter(nodes ...string) Option {
	return func(c *driverConfig) error {
		for _, n := range nodes {
			c.interruptAfter[n] = true
		}
		return nil
	}
}

// WithEmitter attaches an ambient observability backend (logging, tracing,
// or in-memory history) that receives a copy of every superstep/task
// lifecycle event alongside the caller-facing StreamSink. Without one,
// events are discarded.
func WithEmitter(e emit.Emitter) Option {
	return func(c *driverConfig) error {
		c.emitter = e
		return nil
	}
}
