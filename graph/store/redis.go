package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/oakmere/pregel-go/graph"
)

// RedisSaver is a graph.Saver backed by Redis. Each thread's checkpoint ids
// live in an ordered list (RPUSH preserves append order, matching
// graph.NewCheckpointID's lexical sortability), with the encoded
// Checkpoint+CheckpointMetadata stored alongside in a single string key per
// checkpoint. It does not attempt cross-instance transactions: Put and
// PutWrites each touch one thread's keys and are safe under Redis's
// single-threaded command execution, not across a cluster of shards.
type RedisSaver struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisSaver wraps an existing client. prefix namespaces all keys this
// saver touches (e.g. "pregel:") so it can share a Redis instance safely.
func NewRedisSaver(rdb *redis.Client, prefix string) *RedisSaver {
	return &RedisSaver{rdb: rdb, prefix: prefix}
}

func (s *RedisSaver) listKey(threadID string) string {
	return fmt.Sprintf("%sthread:%s:checkpoints", s.prefix, threadID)
}

func (s *RedisSaver) cpKey(threadID, checkpointID string) string {
	return fmt.Sprintf("%scp:%s:%s", s.prefix, threadID, checkpointID)
}

type redisEntry struct {
	Checkpoint graph.Checkpoint         `json:"checkpoint"`
	Metadata   graph.CheckpointMetadata `json:"metadata"`
	ParentID   string                   `json:"parent_id"`
}

func (s *RedisSaver) GetTuple(ctx context.Context, config graph.Config) (*graph.Tuple, error) {
	if config.ThreadID == "" {
		return nil, graph.ErrMissingThreadID
	}

	checkpointID := config.CheckpointID
	if checkpointID == "" {
		ids, err := s.rdb.LRange(ctx, s.listKey(config.ThreadID), -1, -1).Result()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		checkpointID = ids[0]
	}

	raw, err := s.rdb.Get(ctx, s.cpKey(config.ThreadID, checkpointID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var e redisEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, err
	}
	return entryToTuple(config.ThreadID, config.CheckpointNS, checkpointID, e), nil
}

func (s *RedisSaver) List(ctx context.Context, config graph.Config, filter graph.ListFilter, before *graph.Config, limit int) ([]graph.Tuple, error) {
	if config.ThreadID == "" {
		return nil, graph.ErrMissingThreadID
	}
	ids, err := s.rdb.LRange(ctx, s.listKey(config.ThreadID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var out []graph.Tuple
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		if before != nil && id >= before.CheckpointID {
			continue
		}
		raw, err := s.rdb.Get(ctx, s.cpKey(config.ThreadID, id)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var e redisEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		t := entryToTuple(config.ThreadID, config.CheckpointNS, id, e)
		if !matchesFilter(t.Metadata, filter) {
			continue
		}
		out = append(out, *t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *RedisSaver) Put(ctx context.Context, config graph.Config, checkpoint *graph.Checkpoint, metadata graph.CheckpointMetadata, newVersions map[string]graph.ChannelVersion) (graph.Config, error) {
	if config.ThreadID == "" {
		return graph.Config{}, graph.ErrMissingThreadID
	}
	_ = newVersions

	e := redisEntry{Checkpoint: *checkpoint, Metadata: metadata, ParentID: config.CheckpointID}
	e.Checkpoint.ParentID = config.CheckpointID

	data, err := json.Marshal(e)
	if err != nil {
		return graph.Config{}, err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.cpKey(config.ThreadID, checkpoint.ID), data, 0)
	pipe.RPush(ctx, s.listKey(config.ThreadID), checkpoint.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return graph.Config{}, err
	}

	return graph.Config{ThreadID: config.ThreadID, CheckpointID: checkpoint.ID, CheckpointNS: config.CheckpointNS}, nil
}

func (s *RedisSaver) PutWrites(ctx context.Context, config graph.Config, writes []graph.Write, taskID string) error {
	if config.ThreadID == "" {
		return graph.ErrMissingThreadID
	}
	key := s.cpKey(config.ThreadID, config.CheckpointID)
	raw, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return graph.ErrCheckpointNotFound
	}
	if err != nil {
		return err
	}

	var e redisEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return err
	}
	if e.Metadata.Writes == nil {
		e.Metadata.Writes = map[string][]graph.Write{}
	}
	e.Metadata.Writes[taskID] = append(e.Metadata.Writes[taskID], writes...)

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, data, 0).Err()
}

func (s *RedisSaver) DeleteThread(ctx context.Context, threadID string) error {
	ids, err := s.rdb.LRange(ctx, s.listKey(threadID), 0, -1).Result()
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.cpKey(threadID, id))
	}
	pipe.Del(ctx, s.listKey(threadID))
	_, err = pipe.Exec(ctx)
	return err
}

func entryToTuple(threadID, ns, checkpointID string, e redisEntry) *graph.Tuple {
	cfg := graph.Config{ThreadID: threadID, CheckpointID: checkpointID, CheckpointNS: ns}
	var parent *graph.Config
	if e.ParentID != "" {
		parent = &graph.Config{ThreadID: threadID, CheckpointID: e.ParentID, CheckpointNS: ns}
	}
	cp := e.Checkpoint
	return &graph.Tuple{Config: cfg, Checkpoint: &cp, Metadata: e.Metadata, ParentConfig: parent}
}
