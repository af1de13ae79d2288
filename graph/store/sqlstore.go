package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/oakmere/pregel-go/graph"
)

// SQLSaver is a graph.Saver backed by any database/sql driver that speaks
// "?" positional placeholders (modernc.org/sqlite and go-sql-driver/mysql
// both do). Checkpoints append to a single table ordered by checkpoint_id,
// which is already lexically sortable (graph.NewCheckpointID). Construct
// one via NewSQLiteSaver or NewMySQLSaver rather than directly.
type SQLSaver struct {
	db *sql.DB
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS pregel_checkpoints (
	thread_id      VARCHAR(255) NOT NULL,
	checkpoint_id  VARCHAR(255) NOT NULL,
	checkpoint_ns  VARCHAR(255) NOT NULL DEFAULT '',
	parent_id      VARCHAR(255) NOT NULL DEFAULT '',
	step           INTEGER NOT NULL,
	source         VARCHAR(32) NOT NULL,
	checkpoint_json TEXT NOT NULL,
	metadata_json   TEXT NOT NULL,
	PRIMARY KEY (thread_id, checkpoint_id)
);
`

func openSQLSaver(driverName, dsn string, pragmas ...string) (*SQLSaver, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driverName, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping %s: %w", driverName, err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: apply %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}
	return &SQLSaver{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *SQLSaver) Close() error {
	return s.db.Close()
}

func (s *SQLSaver) GetTuple(ctx context.Context, config graph.Config) (*graph.Tuple, error) {
	if config.ThreadID == "" {
		return nil, graph.ErrMissingThreadID
	}

	var row *sql.Row
	if config.CheckpointID != "" {
		row = s.db.QueryRowContext(ctx,
			`SELECT checkpoint_id, parent_id, checkpoint_json, metadata_json FROM pregel_checkpoints
			 WHERE thread_id = ? AND checkpoint_id = ?`, config.ThreadID, config.CheckpointID)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT checkpoint_id, parent_id, checkpoint_json, metadata_json FROM pregel_checkpoints
			 WHERE thread_id = ? ORDER BY checkpoint_id DESC LIMIT 1`, config.ThreadID)
	}

	var checkpointID, parentID, cpJSON, mdJSON string
	if err := row.Scan(&checkpointID, &parentID, &cpJSON, &mdJSON); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return decodeTuple(config.ThreadID, config.CheckpointNS, checkpointID, parentID, cpJSON, mdJSON)
}

func (s *SQLSaver) List(ctx context.Context, config graph.Config, filter graph.ListFilter, before *graph.Config, limit int) ([]graph.Tuple, error) {
	query := `SELECT thread_id, checkpoint_id, parent_id, checkpoint_json, metadata_json FROM pregel_checkpoints`
	var args []any
	var where []string
	if config.ThreadID != "" {
		where = append(where, "thread_id = ?")
		args = append(args, config.ThreadID)
	}
	if before != nil && before.CheckpointID != "" {
		where = append(where, "checkpoint_id < ?")
		args = append(args, before.CheckpointID)
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY thread_id ASC, checkpoint_id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []graph.Tuple
	for rows.Next() {
		var threadID, checkpointID, parentID, cpJSON, mdJSON string
		if err := rows.Scan(&threadID, &checkpointID, &parentID, &cpJSON, &mdJSON); err != nil {
			return nil, err
		}
		t, err := decodeTuple(threadID, config.CheckpointNS, checkpointID, parentID, cpJSON, mdJSON)
		if err != nil {
			return nil, err
		}
		if !matchesFilter(t.Metadata, filter) {
			continue
		}
		out = append(out, *t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

func (s *SQLSaver) Put(ctx context.Context, config graph.Config, checkpoint *graph.Checkpoint, metadata graph.CheckpointMetadata, newVersions map[string]graph.ChannelVersion) (graph.Config, error) {
	if config.ThreadID == "" {
		return graph.Config{}, graph.ErrMissingThreadID
	}
	_ = newVersions // versions live inside checkpoint.ChannelVersions already

	cp := *checkpoint
	cp.ParentID = config.CheckpointID

	cpJSON, err := json.Marshal(cp)
	if err != nil {
		return graph.Config{}, err
	}
	mdJSON, err := json.Marshal(metadata)
	if err != nil {
		return graph.Config{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pregel_checkpoints (thread_id, checkpoint_id, checkpoint_ns, parent_id, step, source, checkpoint_json, metadata_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		config.ThreadID, cp.ID, config.CheckpointNS, cp.ParentID, metadata.Step, string(metadata.Source), string(cpJSON), string(mdJSON))
	if err != nil {
		return graph.Config{}, err
	}

	return graph.Config{ThreadID: config.ThreadID, CheckpointID: cp.ID, CheckpointNS: config.CheckpointNS}, nil
}

func (s *SQLSaver) PutWrites(ctx context.Context, config graph.Config, writes []graph.Write, taskID string) error {
	if config.ThreadID == "" {
		return graph.ErrMissingThreadID
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT metadata_json FROM pregel_checkpoints WHERE thread_id = ? AND checkpoint_id = ?`,
		config.ThreadID, config.CheckpointID)

	var mdJSON string
	if err := row.Scan(&mdJSON); err == sql.ErrNoRows {
		return graph.ErrCheckpointNotFound
	} else if err != nil {
		return err
	}

	var md graph.CheckpointMetadata
	if err := json.Unmarshal([]byte(mdJSON), &md); err != nil {
		return err
	}
	if md.Writes == nil {
		md.Writes = map[string][]graph.Write{}
	}
	md.Writes[taskID] = append(md.Writes[taskID], writes...)

	updated, err := json.Marshal(md)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE pregel_checkpoints SET metadata_json = ? WHERE thread_id = ? AND checkpoint_id = ?`,
		string(updated), config.ThreadID, config.CheckpointID)
	return err
}

func (s *SQLSaver) DeleteThread(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pregel_checkpoints WHERE thread_id = ?`, threadID)
	return err
}

func decodeTuple(threadID, ns, checkpointID, parentID, cpJSON, mdJSON string) (*graph.Tuple, error) {
	var cp graph.Checkpoint
	if err := json.Unmarshal([]byte(cpJSON), &cp); err != nil {
		return nil, err
	}
	var md graph.CheckpointMetadata
	if err := json.Unmarshal([]byte(mdJSON), &md); err != nil {
		return nil, err
	}

	cfg := graph.Config{ThreadID: threadID, CheckpointID: checkpointID, CheckpointNS: ns}
	var parent *graph.Config
	if parentID != "" {
		parent = &graph.Config{ThreadID: threadID, CheckpointID: parentID, CheckpointNS: ns}
	}
	return &graph.Tuple{Config: cfg, Checkpoint: &cp, Metadata: md, ParentConfig: parent}, nil
}
