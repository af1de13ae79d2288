package graph

import (
	"context"
	"errors"
)

// ErrMissingThreadID is returned by any Saver operation that requires a
// thread id when config.ThreadID is empty.
var ErrMissingThreadID = errors.New("graph: thread_id is required")

// ErrCheckpointNotFound is returned by PutWrites when the target checkpoint
// does not exist in the thread's sequence.
var ErrCheckpointNotFound = errors.New("graph: checkpoint not found")

// Config identifies a thread and, optionally, a specific checkpoint and
// subgraph namespace.
type Config struct {
	ThreadID     string
	CheckpointID string
	CheckpointNS string
	Extra        map[string]Value
}

// Tuple bundles a checkpoint with its metadata, the config that addresses
// it, and a link to its parent's config.
type Tuple struct {
	Config       Config
	Checkpoint   *Checkpoint
	Metadata     CheckpointMetadata
	ParentConfig *Config
}

// ListFilter narrows List to checkpoints whose metadata Extra contains all
// of these key/value equalities.
type ListFilter map[string]Value

// Saver is the pluggable checkpoint store capability set. A
// thread_id is required on every call; its absence is ErrMissingThreadID.
//
// Implementations must serialize concurrent writers per thread but may
// allow concurrent readers; distinct
// threads never interfere with one another.
type Saver interface {
	// GetTuple returns the checkpoint matching config.CheckpointID if set,
	// else the most recently appended checkpoint for config.ThreadID, else
	// (nil, nil) if the thread has no checkpoints.
	GetTuple(ctx context.Context, config Config) (*Tuple, error)

	// List yields matching tuples in reverse chronological order. before,
	// if non-nil, excludes checkpoints with id >= before.CheckpointID.
	// limit <= 0 means unbounded.
	List(ctx context.Context, config Config, filter ListFilter, before *Config, limit int) ([]Tuple, error)

	// Put appends checkpoint+metadata to the thread's sequence and returns
	// a Config stamped with the new checkpoint id and thread id. The
	// checkpoint's parent link is taken from config.CheckpointID if set.
	Put(ctx context.Context, config Config, checkpoint *Checkpoint, metadata CheckpointMetadata, newVersions map[string]ChannelVersion) (Config, error)

	// PutWrites attaches additional writes to an already-saved checkpoint
	// entry, keyed by taskID. Returns ErrCheckpointNotFound if the target
	// checkpoint does not exist.
	PutWrites(ctx context.Context, config Config, writes []Write, taskID string) error

	// DeleteThread removes every checkpoint for threadID.
	DeleteThread(ctx context.Context, threadID string) error
}
