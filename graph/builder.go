package graph

import (
	"fmt"
	"sort"
)

// Builder assembles a graph's static topology before compiling it into a
// runnable Compiled graph.
type Builder struct {
	nodes       map[string]NodeSpec
	edges       []Edge
	conditional []ConditionalEdge
	entry       string
	channels    map[string]ChannelSpec
	reducers    ReducerSchema
}

// NewBuilder returns an empty Builder. The state channel's concrete spec is
// finalized at Compile time, once the reducer schema is known.
func NewBuilder() *Builder {
	return &Builder{
		nodes:    map[string]NodeSpec{},
		channels: map[string]ChannelSpec{},
	}
}

// AddNode registers a node's executor and its trigger/read/write channels.
// Triggers default to []string{StateChan} and Reads defaults to Triggers
// when left unset, matching the single-state-channel common case.
func (b *Builder) AddNode(spec NodeSpec) *Builder {
	if len(spec.Triggers) == 0 {
		spec.Triggers = []string{StateChan}
	}
	b.nodes[spec.Name] = spec
	return b
}

// AddChannel registers an additional channel beyond the default state
// channel, e.g. a BinaryOp accumulator or a NamedBarrier gate.
func (b *Builder) AddChannel(name string, kind ChannelKind, opts ...ChannelOption) *Builder {
	b.channels[name] = ChannelSpec{Kind: kind, Options: opts}
	return b
}

// AddEdge wires an unconditional hop: whenever From completes, To fires
// next with From's output as input.
func (b *Builder) AddEdge(from, to string) *Builder {
	b.edges = append(b.edges, Edge{From: from, To: to})
	return b
}

// AddConditionalEdge wires From's Router to decide the next hop(s) from its
// output at runtime. Branches is validated at Compile time: every target
// node name it lists must exist.
func (b *Builder) AddConditionalEdge(from string, router Router, branches map[string]string) *Builder {
	b.conditional = append(b.conditional, ConditionalEdge{From: from, Router: router, Branches: branches})
	return b
}

// SetEntry names the node that fires on the initial input.
func (b *Builder) SetEntry(name string) *Builder {
	b.entry = name
	return b
}

// WithReducerSchema sets the per-field reducer schema used to resolve
// concurrent writes to the state channel.
func (b *Builder) WithReducerSchema(schema ReducerSchema) *Builder {
	b.reducers = schema
	return b
}

// Compile validates the topology and produces a runnable Compiled graph.
// Unknown node references in edges, conditional branches, or the entry
// point are reported as ErrValidation.
func (b *Builder) Compile(opts ...Option) (*Compiled, error) {
	if b.entry == "" {
		return nil, fmt.Errorf("%w: no entry node set", ErrValidation)
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, fmt.Errorf("%w: entry node %q not registered", ErrValidation, b.entry)
	}
	for _, e := range b.edges {
		if _, ok := b.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge references unknown source node %q", ErrValidation, e.From)
		}
		if e.To != End {
			if _, ok := b.nodes[e.To]; !ok {
				return nil, fmt.Errorf("%w: edge references unknown target node %q", ErrValidation, e.To)
			}
		}
	}
	for _, ce := range b.conditional {
		if _, ok := b.nodes[ce.From]; !ok {
			return nil, fmt.Errorf("%w: conditional edge references unknown source node %q", ErrValidation, ce.From)
		}
		for label, target := range ce.Branches {
			if target == End {
				continue
			}
			if _, ok := b.nodes[target]; !ok {
				return nil, fmt.Errorf("%w: conditional edge branch %q targets unknown node %q", ErrValidation, label, target)
			}
		}
	}

	entrySpec := b.nodes[b.entry]
	baseReads := entrySpec.readsOf()
	hasStart := false
	for _, ch := range entrySpec.Triggers {
		if ch == Start {
			hasStart = true
			break
		}
	}
	if !hasStart {
		entrySpec.Triggers = append(append([]string(nil), entrySpec.Triggers...), Start)
	}
	if len(entrySpec.Reads) == 0 {
		// Start only ever holds the original input — it is written once and
		// never updated again — so it must come first: it seeds fields a
		// looping entry node never writes back (e.g. a fixed target), while
		// the node's regular trigger channels come after and override
		// whatever fields they do carry, so accumulated progress on a
		// self-loop isn't reset to the initial input every superstep.
		entrySpec.Reads = append([]string{Start}, baseReads...)
	}
	b.nodes[b.entry] = entrySpec

	cfg := defaultConfig()
	for _, o := range opts {
		if err := o(cfg); err != nil {
			return nil, err
		}
	}
	for name, spec := range b.channels {
		if _, already := cfg.channels[name]; !already {
			cfg.channels[name] = spec
		}
	}
	if b.reducers != nil {
		cfg.reducers = b.reducers
	}

	// The state channel folds each task's per-field writes through the
	// reducer schema via a BinaryOp combiner, so concurrent writes within a
	// superstep merge instead of last-write-wins clobbering.
	reducers := cfg.reducers
	cfg.channels[StateChan] = ChannelSpec{
		Kind: KindBinaryOp,
		Options: []ChannelOption{WithCombiner(func(acc, next Value) Value {
			nm, ok := next.(map[string]Value)
			if !ok {
				return acc
			}
			grouped := make(map[string][]Value, len(nm))
			for k, v := range nm {
				grouped[k] = []Value{v}
			}
			return reducers.ApplyUpdates(acc, grouped)
		})},
	}

	nodes := make(map[string]NodeSpec, len(b.nodes))
	for k, v := range b.nodes {
		nodes[k] = v
	}

	names := make([]string, 0, len(nodes))
	for n := range nodes {
		names = append(names, n)
	}
	sort.Strings(names)

	return &Compiled{
		nodes:       nodes,
		edges:       append([]Edge(nil), b.edges...),
		conditional: append([]ConditionalEdge(nil), b.conditional...),
		entry:       b.entry,
		triggerIdx:  BuildTriggerIndex(nodes),
		cfg:         cfg,
	}, nil
}
