// Package store provides pluggable graph.Saver implementations: an
// in-memory reference saver plus optional SQLite, MySQL, and Redis-backed
// savers.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/oakmere/pregel-go/graph"
)

// MemorySaver is the reference in-memory graph.Saver. Threads map to
// an append-only slice of entries; readers run concurrently with each
// other and exclusively with writers via a sync.RWMutex.
//
// Append is amortized O(1). GetTuple without a checkpoint id is O(1)
// (last entry); with an id it scans the thread's entries linearly.
type MemorySaver struct {
	mu      sync.RWMutex
	threads map[string][]entry
}

type entry struct {
	tuple  graph.Tuple
	writes map[string][]graph.Write // taskID -> writes, attached via PutWrites
}

// NewMemorySaver constructs an empty MemorySaver.
func NewMemorySaver() *MemorySaver {
	return &MemorySaver{threads: make(map[string][]entry)}
}

func (s *MemorySaver) GetTuple(_ context.Context, config graph.Config) (*graph.Tuple, error) {
	if config.ThreadID == "" {
		return nil, graph.ErrMissingThreadID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.threads[config.ThreadID]
	if len(entries) == 0 {
		return nil, nil
	}
	if config.CheckpointID == "" {
		t := entries[len(entries)-1].tuple
		return &t, nil
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].tuple.Config.CheckpointID == config.CheckpointID {
			t := entries[i].tuple
			return &t, nil
		}
	}
	return nil, nil
}

func (s *MemorySaver) List(_ context.Context, config graph.Config, filter graph.ListFilter, before *graph.Config, limit int) ([]graph.Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []entry
	if config.ThreadID != "" {
		candidates = append(candidates, s.threads[config.ThreadID]...)
	} else {
		threadIDs := make([]string, 0, len(s.threads))
		for id := range s.threads {
			threadIDs = append(threadIDs, id)
		}
		sort.Strings(threadIDs)
		for _, id := range threadIDs {
			candidates = append(candidates, s.threads[id]...)
		}
	}

	// Reverse chronological: append order is chronological per thread, so
	// reverse; across threads we keep thread grouping, each reversed.
	out := make([]graph.Tuple, 0, len(candidates))
	for i := len(candidates) - 1; i >= 0; i-- {
		e := candidates[i]
		if before != nil && e.tuple.Config.CheckpointID >= before.CheckpointID {
			continue
		}
		if !matchesFilter(e.tuple.Metadata, filter) {
			continue
		}
		out = append(out, e.tuple)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matchesFilter(md graph.CheckpointMetadata, filter graph.ListFilter) bool {
	for k, v := range filter {
		if md.Extra == nil {
			return false
		}
		if got, ok := md.Extra[k]; !ok || got != v {
			return false
		}
	}
	return true
}

func (s *MemorySaver) Put(_ context.Context, config graph.Config, checkpoint *graph.Checkpoint, metadata graph.CheckpointMetadata, newVersions map[string]graph.ChannelVersion) (graph.Config, error) {
	if config.ThreadID == "" {
		return graph.Config{}, graph.ErrMissingThreadID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *checkpoint
	cp.ParentID = config.CheckpointID

	stamped := graph.Config{
		ThreadID:     config.ThreadID,
		CheckpointID: cp.ID,
		CheckpointNS: config.CheckpointNS,
	}
	var parent *graph.Config
	if config.CheckpointID != "" {
		p := config
		parent = &p
	}

	_ = newVersions
	s.threads[config.ThreadID] = append(s.threads[config.ThreadID], entry{
		tuple: graph.Tuple{
			Config:       stamped,
			Checkpoint:   &cp,
			Metadata:     metadata,
			ParentConfig: parent,
		},
	})
	return stamped, nil
}

func (s *MemorySaver) PutWrites(_ context.Context, config graph.Config, writes []graph.Write, taskID string) error {
	if config.ThreadID == "" {
		return graph.ErrMissingThreadID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.threads[config.ThreadID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].tuple.Config.CheckpointID == config.CheckpointID {
			if entries[i].writes == nil {
				entries[i].writes = map[string][]graph.Write{}
			}
			entries[i].writes[taskID] = append(entries[i].writes[taskID], writes...)
			if entries[i].tuple.Metadata.Writes == nil {
				entries[i].tuple.Metadata.Writes = map[string][]graph.Write{}
			}
			entries[i].tuple.Metadata.Writes[taskID] = entries[i].writes[taskID]
			s.threads[config.ThreadID] = entries
			return nil
		}
	}
	return graph.ErrCheckpointNotFound
}

func (s *MemorySaver) DeleteThread(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}
