package store

import (
	"context"
	"testing"

	"github.com/oakmere/pregel-go/graph"
)

func TestMemorySaver_PutAndGetTuple(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySaver()

	cp := &graph.Checkpoint{ID: "cp-1", ChannelValues: map[string]graph.Value{"state": map[string]graph.Value{"counter": float64(1)}}}
	stamped, err := s.Put(ctx, graph.Config{ThreadID: "thread-1"}, cp, graph.CheckpointMetadata{Step: 0, Source: graph.SourceLoop}, nil)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if stamped.CheckpointID != "cp-1" {
		t.Fatalf("expected stamped checkpoint id cp-1, got %q", stamped.CheckpointID)
	}

	tuple, err := s.GetTuple(ctx, graph.Config{ThreadID: "thread-1"})
	if err != nil {
		t.Fatalf("GetTuple failed: %v", err)
	}
	if tuple == nil || tuple.Checkpoint.ID != "cp-1" {
		t.Errorf("expected checkpoint cp-1, got %+v", tuple)
	}
}

func TestMemorySaver_GetTupleByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySaver()

	for _, id := range []string{"cp-1", "cp-2", "cp-3"} {
		cp := &graph.Checkpoint{ID: id, ChannelValues: map[string]graph.Value{}}
		if _, err := s.Put(ctx, graph.Config{ThreadID: "thread-1"}, cp, graph.CheckpointMetadata{}, nil); err != nil {
			t.Fatalf("Put %s failed: %v", id, err)
		}
	}

	tuple, err := s.GetTuple(ctx, graph.Config{ThreadID: "thread-1", CheckpointID: "cp-2"})
	if err != nil {
		t.Fatalf("GetTuple failed: %v", err)
	}
	if tuple == nil || tuple.Checkpoint.ID != "cp-2" {
		t.Errorf("expected checkpoint cp-2, got %+v", tuple)
	}
}

func TestMemorySaver_GetTupleEmptyThread(t *testing.T) {
	s := NewMemorySaver()
	tuple, err := s.GetTuple(context.Background(), graph.Config{ThreadID: "no-such-thread"})
	if err != nil {
		t.Fatalf("GetTuple failed: %v", err)
	}
	if tuple != nil {
		t.Errorf("expected nil tuple, got %+v", tuple)
	}
}

func TestMemorySaver_MissingThreadID(t *testing.T) {
	s := NewMemorySaver()
	ctx := context.Background()
	if _, err := s.GetTuple(ctx, graph.Config{}); err != graph.ErrMissingThreadID {
		t.Errorf("GetTuple: expected ErrMissingThreadID, got %v", err)
	}
	if _, err := s.Put(ctx, graph.Config{}, &graph.Checkpoint{ID: "x"}, graph.CheckpointMetadata{}, nil); err != graph.ErrMissingThreadID {
		t.Errorf("Put: expected ErrMissingThreadID, got %v", err)
	}
	if err := s.PutWrites(ctx, graph.Config{}, nil, "task"); err != graph.ErrMissingThreadID {
		t.Errorf("PutWrites: expected ErrMissingThreadID, got %v", err)
	}
}

func TestMemorySaver_List(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySaver()

	for i := 0; i < 3; i++ {
		cp := &graph.Checkpoint{ID: graph.NewCheckpointID(fixedTime()), ChannelValues: map[string]graph.Value{}}
		if _, err := s.Put(ctx, graph.Config{ThreadID: "thread-1"}, cp, graph.CheckpointMetadata{Step: i}, nil); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
	}

	tuples, err := s.List(ctx, graph.Config{ThreadID: "thread-1"}, graph.ListFilter{}, nil, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tuples) != 3 {
		t.Fatalf("expected 3 tuples, got %d", len(tuples))
	}
	if tuples[0].Metadata.Step != 2 {
		t.Errorf("expected newest-first order, first step = %d, want 2", tuples[0].Metadata.Step)
	}
}

func TestMemorySaver_ListWithFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySaver()

	cp1 := &graph.Checkpoint{ID: "cp-1", ChannelValues: map[string]graph.Value{}}
	if _, err := s.Put(ctx, graph.Config{ThreadID: "thread-1"}, cp1, graph.CheckpointMetadata{Step: 0, Extra: map[string]graph.Value{"tag": "a"}}, nil); err != nil {
		t.Fatalf("Put cp-1 failed: %v", err)
	}
	cp2 := &graph.Checkpoint{ID: "cp-2", ChannelValues: map[string]graph.Value{}}
	if _, err := s.Put(ctx, graph.Config{ThreadID: "thread-1"}, cp2, graph.CheckpointMetadata{Step: 1, Extra: map[string]graph.Value{"tag": "b"}}, nil); err != nil {
		t.Fatalf("Put cp-2 failed: %v", err)
	}

	tuples, err := s.List(ctx, graph.Config{ThreadID: "thread-1"}, graph.ListFilter{"tag": "b"}, nil, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tuples) != 1 || tuples[0].Checkpoint.ID != "cp-2" {
		t.Errorf("expected only cp-2 to match filter, got %+v", tuples)
	}
}

func TestMemorySaver_PutWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySaver()

	cp := &graph.Checkpoint{ID: "cp-1", ChannelValues: map[string]graph.Value{}}
	stamped, err := s.Put(ctx, graph.Config{ThreadID: "t1"}, cp, graph.CheckpointMetadata{Step: 0}, nil)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	writes := []graph.Write{{Channel: graph.StateChan, Value: map[string]graph.Value{"x": float64(1)}}}
	if err := s.PutWrites(ctx, stamped, writes, "task-1"); err != nil {
		t.Fatalf("PutWrites failed: %v", err)
	}

	tuple, err := s.GetTuple(ctx, graph.Config{ThreadID: "t1"})
	if err != nil {
		t.Fatalf("GetTuple failed: %v", err)
	}
	if len(tuple.Metadata.Writes["task-1"]) != 1 {
		t.Errorf("expected 1 write recorded for task-1, got %d", len(tuple.Metadata.Writes["task-1"]))
	}
}

func TestMemorySaver_PutWritesUnknownCheckpoint(t *testing.T) {
	s := NewMemorySaver()
	err := s.PutWrites(context.Background(), graph.Config{ThreadID: "t1", CheckpointID: "missing"}, nil, "task")
	if err != graph.ErrCheckpointNotFound {
		t.Errorf("expected ErrCheckpointNotFound, got %v", err)
	}
}

func TestMemorySaver_DeleteThread(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySaver()

	cp := &graph.Checkpoint{ID: "cp-1", ChannelValues: map[string]graph.Value{}}
	if _, err := s.Put(ctx, graph.Config{ThreadID: "t1"}, cp, graph.CheckpointMetadata{}, nil); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.DeleteThread(ctx, "t1"); err != nil {
		t.Fatalf("DeleteThread failed: %v", err)
	}
	tuple, err := s.GetTuple(ctx, graph.Config{ThreadID: "t1"})
	if err != nil {
		t.Fatalf("GetTuple failed: %v", err)
	}
	if tuple != nil {
		t.Error("expected thread to be empty after delete")
	}
}

func TestMemorySaver_ParentConfig(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySaver()

	cp1 := &graph.Checkpoint{ID: "cp-1", ChannelValues: map[string]graph.Value{}}
	first, err := s.Put(ctx, graph.Config{ThreadID: "t1"}, cp1, graph.CheckpointMetadata{}, nil)
	if err != nil {
		t.Fatalf("Put cp-1 failed: %v", err)
	}

	cp2 := &graph.Checkpoint{ID: "cp-2", ChannelValues: map[string]graph.Value{}}
	if _, err := s.Put(ctx, first, cp2, graph.CheckpointMetadata{}, nil); err != nil {
		t.Fatalf("Put cp-2 failed: %v", err)
	}

	tuple, err := s.GetTuple(ctx, graph.Config{ThreadID: "t1", CheckpointID: "cp-2"})
	if err != nil {
		t.Fatalf("GetTuple failed: %v", err)
	}
	if tuple.ParentConfig == nil || tuple.ParentConfig.CheckpointID != "cp-1" {
		t.Errorf("expected parent checkpoint cp-1, got %+v", tuple.ParentConfig)
	}
}
