package graph

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Source tags the event that produced a CheckpointMetadata.
type Source string

const (
	SourceInput  Source = "input"
	SourceLoop   Source = "loop"
	SourceUpdate Source = "update"
	SourceFork   Source = "fork"
)

// Checkpoint is an immutable record of all channel state plus per-node
// seen-versions at one point in an execution.
type Checkpoint struct {
	ID                string                               `json:"id"`
	ChannelValues     map[string]Value                      `json:"channel_values"`
	ChannelVersions   map[string]ChannelVersion              `json:"channel_versions"`
	VersionsSeen      map[string]map[string]ChannelVersion   `json:"versions_seen"`
	UpdatedChannels   []string                               `json:"updated_channels,omitempty"`
	ParentID          string                                 `json:"parent_id,omitempty"`
}

// CheckpointMetadata accompanies a Checkpoint in the saver.
type CheckpointMetadata struct {
	Step   int                 `json:"step"`
	Source Source              `json:"source"`
	Writes map[string][]Write  `json:"writes,omitempty"`
	Extra  map[string]Value    `json:"extra,omitempty"`
}

// NewCheckpointID returns a sortable-then-unique checkpoint id: a
// nanosecond timestamp prefix (so lexical order matches creation order)
// followed by a random UUID suffix for uniqueness under clock coarseness.
func NewCheckpointID(now time.Time) string {
	return fmt.Sprintf("%020d-%s", now.UnixNano(), uuid.NewString())
}

// emptyCheckpoint builds a checkpoint with no channel content, used as the
// root of a fresh thread.
func emptyCheckpoint(id string) *Checkpoint {
	return &Checkpoint{
		ID:              id,
		ChannelValues:   map[string]Value{},
		ChannelVersions: map[string]ChannelVersion{},
		VersionsSeen:    map[string]map[string]ChannelVersion{},
	}
}

// clone returns a deep-enough copy of the checkpoint for safe mutation
// (maps are copied one level; Values are treated as immutable once stored).
func (c *Checkpoint) clone() *Checkpoint {
	out := &Checkpoint{
		ID:       c.ID,
		ParentID: c.ParentID,
	}
	out.ChannelValues = make(map[string]Value, len(c.ChannelValues))
	for k, v := range c.ChannelValues {
		out.ChannelValues[k] = v
	}
	out.ChannelVersions = make(map[string]ChannelVersion, len(c.ChannelVersions))
	for k, v := range c.ChannelVersions {
		out.ChannelVersions[k] = v
	}
	out.VersionsSeen = make(map[string]map[string]ChannelVersion, len(c.VersionsSeen))
	for node, seen := range c.VersionsSeen {
		copied := make(map[string]ChannelVersion, len(seen))
		for ch, v := range seen {
			copied[ch] = v
		}
		out.VersionsSeen[node] = copied
	}
	if len(c.UpdatedChannels) > 0 {
		out.UpdatedChannels = append([]string(nil), c.UpdatedChannels...)
	}
	return out
}

// seenFor returns (creating if absent) the per-channel seen-version map for
// a node.
func (c *Checkpoint) seenFor(node string) map[string]ChannelVersion {
	seen, ok := c.VersionsSeen[node]
	if !ok {
		seen = map[string]ChannelVersion{}
		c.VersionsSeen[node] = seen
	}
	return seen
}

// channelHash produces a deterministic fingerprint of a checkpoint's
// channel_versions (channel names and their versions; channel_values are
// not hashed), useful for detecting accidental divergence between two
// replays of the same prefix.
func channelHash(c *Checkpoint) string {
	h := sha256.New()
	names := make([]string, 0, len(c.ChannelVersions))
	for n := range c.ChannelVersions {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		h.Write([]byte(n))
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(c.ChannelVersions[n]))
		h.Write(buf[:])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// snapshotChannels serializes every checkpointable channel in live into a
// fresh Checkpoint; prev is accepted but not read. Untracked channels never
// appear in channel_values.
func snapshotChannels(id, parentID string, prev *Checkpoint, live map[string]Channel, channelVersions map[string]ChannelVersion, versionsSeen map[string]map[string]ChannelVersion, updated []string) (*Checkpoint, error) {
	cp := &Checkpoint{
		ID:              id,
		ParentID:        parentID,
		ChannelValues:   map[string]Value{},
		ChannelVersions: map[string]ChannelVersion{},
		VersionsSeen:    map[string]map[string]ChannelVersion{},
	}
	for name, ch := range live {
		v, err := ch.Checkpoint()
		if err == ErrNotCheckpointable {
			continue
		}
		if err != nil {
			return nil, err
		}
		cp.ChannelValues[name] = v
	}
	for name, v := range channelVersions {
		cp.ChannelVersions[name] = v
	}
	for node, seen := range versionsSeen {
		copied := make(map[string]ChannelVersion, len(seen))
		for ch, v := range seen {
			copied[ch] = v
		}
		cp.VersionsSeen[node] = copied
	}
	if len(updated) > 0 {
		sorted := append([]string(nil), updated...)
		sort.Strings(sorted)
		cp.UpdatedChannels = sorted
	}
	_ = prev
	return cp, nil
}

// restoreChannels rebuilds a live channel map from a checkpoint, given the
// static kind/options each channel was declared with at compile time.
// Untracked channels are left empty, matching FromCheckpoint's no-op
// contract.
func restoreChannels(cp *Checkpoint, specs map[string]ChannelSpec) (map[string]Channel, error) {
	live := make(map[string]Channel, len(specs))
	for name, spec := range specs {
		ch := NewChannel(spec.Kind, spec.Options...)
		if v, ok := cp.ChannelValues[name]; ok {
			if err := ch.FromCheckpoint(v); err != nil {
				return nil, fmt.Errorf("graph: restoring channel %q: %w", name, err)
			}
		}
		live[name] = ch
	}
	return live, nil
}

// ChannelSpec declares how a channel is constructed; it is stored once at
// compile time so the driver can reconstruct channels from a checkpoint on
// resume or fork.
type ChannelSpec struct {
	Kind    ChannelKind
	Options []ChannelOption
}
