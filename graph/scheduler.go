package graph

import (
	"fmt"
	"sort"
)

// TriggerIndex maps a channel name to the (sorted) nodes it triggers; it is
// the reverse of each NodeSpec's Triggers list, computed once at compile
// time.
type TriggerIndex map[string][]string

// BuildTriggerIndex computes the channel -> triggered-nodes reverse index
// from a node registry.
func BuildTriggerIndex(specs map[string]NodeSpec) TriggerIndex {
	idx := TriggerIndex{}
	for name, spec := range specs {
		for _, ch := range spec.Triggers {
			idx[ch] = append(idx[ch], name)
		}
	}
	for ch := range idx {
		sort.Strings(idx[ch])
	}
	return idx
}

// prepareNextTasks implements the scheduler: it selects which nodes
// fire next by comparing channel versions against each node's recorded
// versions_seen, and drains queued Sends into push-tasks.
func prepareNextTasks(
	cp *Checkpoint,
	specs map[string]NodeSpec,
	triggerIdx TriggerIndex,
	live map[string]Channel,
	updatedHint []string,
	hintProvided bool,
) (map[string]*Task, error) {
	tasks := map[string]*Task{}

	candidates := selectCandidates(cp, specs, triggerIdx, updatedHint, hintProvided)

	for _, name := range candidates {
		spec := specs[name]
		seen := cp.VersionsSeen[name]
		fires := false
		triggered := map[string]bool{}
		for _, ch := range spec.Triggers {
			chanVersion := cp.ChannelVersions[ch]
			seenVersion := NullVersion
			if seen != nil {
				seenVersion = seen[ch]
			}
			if chanVersion <= seenVersion {
				continue
			}
			fires = true
			triggered[ch] = true
		}
		if !fires {
			continue
		}

		input, err := assembleInput(spec, live)
		if err != nil {
			return nil, err
		}

		taskID := fmt.Sprintf("%s:%s", cp.ID, name)
		specCopy := spec
		tasks[taskID] = &Task{
			ID:       taskID,
			Name:     name,
			Input:    input,
			Path:     []string{name},
			Triggers: triggered,
			spec:     &specCopy,
		}
	}

	pushTasks, err := drainPushTasks(cp, specs, live)
	if err != nil {
		return nil, err
	}
	for id, t := range pushTasks {
		tasks[id] = t
	}

	return tasks, nil
}

// selectCandidates picks which node names are eligible to run this
// superstep, using the trigger index when an updated-channel hint is
// available and falling back to scanning every node otherwise.
func selectCandidates(cp *Checkpoint, specs map[string]NodeSpec, triggerIdx TriggerIndex, updatedHint []string, hintProvided bool) []string {
	var names []string

	switch {
	case hintProvided && triggerIdx != nil && len(updatedHint) > 0:
		seen := map[string]bool{}
		for _, ch := range updatedHint {
			for _, n := range triggerIdx[ch] {
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}
		}
	case len(cp.ChannelVersions) == 0:
		names = nil
	default:
		for n := range specs {
			names = append(names, n)
		}
	}

	sort.Strings(names)
	return names
}

// assembleInput builds a node's input Value from the channels it reads:
// a single read passes the channel's value through directly (state/Start
// unwrapped, others name-wrapped), multiple reads merge into a flattened
// map.
func assembleInput(spec NodeSpec, live map[string]Channel) (Value, error) {
	reads := spec.readsOf()

	if len(reads) == 1 {
		ch, ok := live[reads[0]]
		if !ok {
			return nil, nil
		}
		v, err := ch.Get()
		if err == ErrEmptyChannel {
			v = nil
		} else if err != nil {
			return nil, err
		}
		if reads[0] == StateChan || reads[0] == Start {
			return v, nil
		}
		return map[string]Value{reads[0]: v}, nil
	}

	merged := map[string]Value{}
	for _, name := range reads {
		ch, ok := live[name]
		if !ok {
			continue
		}
		v, err := ch.Get()
		if err == ErrEmptyChannel {
			continue
		}
		if err != nil {
			return nil, err
		}
		FlattenInto(merged, name, v)
	}
	return merged, nil
}

// drainPushTasks drains the dedicated dynamic-tasks channel, which carries
// Sends pushed by Command.Goto rather than declared edges. The channel is
// reset after draining regardless of whether it held anything, since a
// Topic's empty update is a no-op and would otherwise leave stale entries
// visible next superstep.
func drainPushTasks(cp *Checkpoint, specs map[string]NodeSpec, live map[string]Channel) (map[string]*Task, error) {
	tasksCh, ok := live[TasksChan]
	if !ok {
		return nil, nil
	}
	v, err := tasksCh.Get()
	if err == ErrEmptyChannel {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	items, _ := v.([]Value)

	out := map[string]*Task{}
	for i, raw := range items {
		send, ok := raw.(Send)
		if !ok {
			if m, ok := raw.(map[string]Value); ok {
				node, _ := m["node"].(string)
				send = Send{Node: node, Input: m["input"]}
			} else {
				continue
			}
		}
		spec, ok := specs[send.Node]
		if !ok {
			continue
		}
		specCopy := spec
		taskID := fmt.Sprintf("%s:__push__:%s:%d", cp.ID, send.Node, i)
		out[taskID] = &Task{
			ID:       taskID,
			Name:     send.Node,
			Input:    send.Input,
			Path:     []string{"__push__", send.Node, fmt.Sprintf("%d", i)},
			Triggers: map[string]bool{},
			spec:     &specCopy,
		}
	}

	// Reset, not update([]): Topic's empty-update is a no-op, so the
	// tasks channel is rebuilt fresh rather than drained via Update(nil).
	*tasksCh.(*TopicChannel) = TopicChannel{}
	return out, nil
}
