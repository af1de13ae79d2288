package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SubgraphSpec embeds a compiled graph as a single node of an outer graph
//.
type SubgraphSpec struct {
	Graph *Compiled

	// InheritState passes the parent's assembled node input in as the
	// subgraph run's input (written to its Start channel, which its entry
	// node reads).
	InheritState bool

	// StateFilter, when non-nil, narrows what InheritState passes in, and
	// what SyncStateToParent returns, to the named top-level fields.
	StateFilter []string

	// SyncStateToParent, when true, shallow-merges the subgraph's final
	// state back into the parent task's write set under its own field
	// names.
	SyncStateToParent bool
}

// runSubgraph executes spec's compiled graph to completion on a fresh
// thread id, optionally seeding its initial state from the parent task's
// input, and returns the value to fold back into the parent's writes.
func runSubgraph(ctx context.Context, spec *SubgraphSpec, parentInput Value, rt *RunContext) (Value, error) {
	childThread := fmt.Sprintf("%s/sub/%s", rt.ThreadID, uuid.NewString())

	var seed Value
	if spec.InheritState {
		seed = filterState(parentInput, spec.StateFilter)
	}

	var childStream *streamer
	if rt.stream != nil {
		childStream = rt.stream.child(rt.Node)
	}

	result, err := spec.Graph.runInternal(ctx, childThread, seed, childStream, rt.store)
	if err != nil {
		return nil, err
	}

	if !spec.SyncStateToParent {
		return nil, nil
	}
	return filterState(result, spec.StateFilter), nil
}

// filterState copies only the named top-level fields of v when names is
// non-empty, else returns v unchanged. Non-object values pass through
// untouched, since a field filter is meaningless on a scalar.
func filterState(v Value, names []string) Value {
	if len(names) == 0 {
		return v
	}
	m, ok := v.(map[string]Value)
	if !ok {
		return v
	}
	out := make(map[string]Value, len(names))
	for _, n := range names {
		if val, ok := m[n]; ok {
			out[n] = val
		}
	}
	return out
}
