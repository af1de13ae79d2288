// Package graph implements the Pregel-style superstep execution core:
// versioned channels, checkpoints, the scheduler and write applier, the
// superstep driver, and subgraph composition.
package graph

import "sort"

// Value is the opaque, serializable payload carried by channels and passed
// to node executors. It is always one of: nil, bool, string, a numeric type,
// []Value, map[string]Value, or a recursive composition of those. Reducers
// and channel disciplines never assume a stricter shape than this.
type Value = any

// RootKey is the reserved state field a scalar (non-object) Command.Update or
// node return value is written under when the node's write set can't be
// expressed as object fields.
const RootKey = "__root__"

// Reducer merges a partial update into accumulated state for one field's
// values. It must be associative: folding [a, b] then [c] must equal folding
// [a] then [b, c].
type Reducer func(prev Value, updates []Value) Value

// Overwrite is the default reducer: the last update wins.
func Overwrite(_ Value, updates []Value) Value {
	if len(updates) == 0 {
		return nil
	}
	return updates[len(updates)-1]
}

// Append concatenates list-shaped updates onto a list-shaped previous value.
// Non-list updates are appended as single elements.
func Append(prev Value, updates []Value) Value {
	out, _ := prev.([]Value)
	if out == nil && prev != nil {
		out = []Value{prev}
	}
	for _, u := range updates {
		if items, ok := u.([]Value); ok {
			out = append(out, items...)
			continue
		}
		out = append(out, u)
	}
	return out
}

// Merge shallow-merges map-shaped updates onto a map-shaped previous value,
// last key wins on conflict.
func Merge(prev Value, updates []Value) Value {
	out := map[string]Value{}
	if m, ok := prev.(map[string]Value); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	for _, u := range updates {
		if m, ok := u.(map[string]Value); ok {
			for k, v := range m {
				out[k] = v
			}
		}
	}
	return out
}

// Sum adds numeric updates (as float64) onto a numeric previous value.
func Sum(prev Value, updates []Value) Value {
	total := toFloat(prev)
	for _, u := range updates {
		total += toFloat(u)
	}
	return total
}

func toFloat(v Value) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// ReducerSchema maps state field names to the Reducer that resolves
// concurrent writes to that field. Fields without an entry default to
// Overwrite.
type ReducerSchema map[string]Reducer

// ReducerFor returns the reducer configured for field, defaulting to
// Overwrite.
func (s ReducerSchema) ReducerFor(field string) Reducer {
	if s != nil {
		if r, ok := s[field]; ok && r != nil {
			return r
		}
	}
	return Overwrite
}

// ApplyUpdates merges a grouped map of field -> pending update values into
// prev, per-field, via the schema's reducers. A non-object prev is kept
// under RootKey in the result.
func (s ReducerSchema) ApplyUpdates(prev Value, grouped map[string][]Value) Value {
	base, isObj := prev.(map[string]Value)
	if !isObj {
		base = map[string]Value{}
		if prev != nil {
			base[RootKey] = prev
		}
	} else {
		copied := make(map[string]Value, len(base))
		for k, v := range base {
			copied[k] = v
		}
		base = copied
	}

	fields := make([]string, 0, len(grouped))
	for f := range grouped {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		reducer := s.ReducerFor(f)
		base[f] = reducer(base[f], grouped[f])
	}
	return base
}

// UpdateAsTuples normalizes a Command.Update (or a bare node return value)
// into a list of (field, value) writes: object entries become per-key
// writes; a scalar value becomes a single write to RootKey.
func UpdateAsTuples(update Value) []Write {
	if update == nil {
		return nil
	}
	if m, ok := update.(map[string]Value); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		writes := make([]Write, 0, len(keys))
		for _, k := range keys {
			writes = append(writes, Write{Channel: k, Value: m[k]})
		}
		return writes
	}
	return []Write{{Channel: RootKey, Value: update}}
}

// Write is a single (channel-name, value) contribution produced by a task.
type Write struct {
	Channel string
	Value   Value
}

// FlattenInto flattens src's fields (if src is an object) into dst under
// their own keys; otherwise stores src under name. Used by the scheduler
// when assembling multi-channel input.
func FlattenInto(dst map[string]Value, name string, src Value) {
	if m, ok := src.(map[string]Value); ok {
		for k, v := range m {
			dst[k] = v
		}
		return
	}
	dst[name] = src
}
