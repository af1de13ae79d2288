package store

import (
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// NewSQLiteSaver opens (creating if absent) a SQLite-backed graph.Saver at
// path, e.g. "./checkpoints.db" or ":memory:" for a process-local store that
// still exercises the same SQL code path as a file-backed one. WAL mode lets
// List/GetTuple read concurrently with an in-flight Put.
func NewSQLiteSaver(path string) (*SQLSaver, error) {
	return openSQLSaver("sqlite", path,
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	)
}
