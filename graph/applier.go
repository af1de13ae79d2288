package graph

import "sort"

// reservedWriteNames are marker channel names the write applier must never
// treat as a real channel write target.
var reservedWriteNames = map[string]bool{
	"__push__":      true,
	"__no_writes__": true,
	"__resume__":    true,
	"__interrupt__": true,
	"__return__":    true,
	"__error__":     true,
}

// completedTask is what the write applier needs about a finished task: its
// identity, its triggers, path, and accumulated writes.
type completedTask struct {
	Name     string
	Path     []string
	Triggers map[string]bool
	Writes   []Write
}

// applyWrites implements the write applier: it merges a superstep's
// completed tasks' writes into the live channel map, bumps versions, and
// returns the set of channels whose availability changed — the "updated
// channels" hint for the next superstep.
func applyWrites(cp *Checkpoint, live map[string]Channel, completed []completedTask, triggerIdx TriggerIndex) (map[string]bool, error) {
	// Step 1: deterministic ordering.
	sort.SliceStable(completed, func(i, j int) bool {
		return pathKey(completed[i].Path) < pathKey(completed[j].Path)
	})

	// Step 2: bump_step.
	bumpStep := false
	for _, t := range completed {
		if len(t.Triggers) > 0 {
			bumpStep = true
			break
		}
	}

	// Step 3: versions_seen update, using pre-bump channel_versions.
	for _, t := range completed {
		seen := cp.seenFor(t.Name)
		for ch := range t.Triggers {
			seen[ch] = cp.ChannelVersions[ch]
		}
	}

	// Step 4: next version.
	next := Increment(maxVersion(cp.ChannelVersions))

	updated := map[string]bool{}

	// Step 5: consume triggered channels.
	for _, t := range completed {
		for ch := range t.Triggers {
			channel, ok := live[ch]
			if !ok {
				continue
			}
			if channel.Consume() {
				cp.ChannelVersions[ch] = next
			}
		}
	}

	// Step 6: group writes by channel, skipping reserved names and
	// channels absent from the live map.
	grouped := map[string][]Value{}
	order := []string{}
	for _, t := range completed {
		for _, w := range t.Writes {
			if reservedWriteNames[w.Channel] {
				continue
			}
			if _, ok := live[w.Channel]; !ok {
				continue
			}
			if _, seenBefore := grouped[w.Channel]; !seenBefore {
				order = append(order, w.Channel)
			}
			grouped[w.Channel] = append(grouped[w.Channel], w.Value)
		}
	}

	// Step 7: apply grouped writes.
	for _, name := range order {
		channel := live[name]
		changed, err := channel.Update(grouped[name])
		if err != nil {
			return nil, err
		}
		if changed {
			cp.ChannelVersions[name] = next
			if channel.IsAvailable() {
				updated[name] = true
			}
		}
	}

	// Step 8: barrier notification.
	if bumpStep {
		for name, channel := range live {
			if updated[name] || !channel.IsAvailable() {
				continue
			}
			changed, err := channel.Update(nil)
			if err != nil {
				return nil, err
			}
			if changed {
				cp.ChannelVersions[name] = next
				if channel.IsAvailable() {
					updated[name] = true
				}
			}
		}
	}

	// Step 9: tentative last-superstep detection.
	if bumpStep && !anyUpdatedTriggersNode(updated, triggerIdx) {
		for name, channel := range live {
			if channel.Finish() {
				cp.ChannelVersions[name] = next
				if channel.IsAvailable() {
					updated[name] = true
				}
			}
		}
	}

	// Step 10: record and return.
	names := make([]string, 0, len(updated))
	for n := range updated {
		names = append(names, n)
	}
	sort.Strings(names)
	cp.UpdatedChannels = names

	return updated, nil
}

func anyUpdatedTriggersNode(updated map[string]bool, triggerIdx TriggerIndex) bool {
	for ch := range updated {
		if len(triggerIdx[ch]) > 0 {
			return true
		}
	}
	return false
}
