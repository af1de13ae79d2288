package store

import (
	_ "github.com/go-sql-driver/mysql" // registers the "mysql" database/sql driver
)

// NewMySQLSaver opens a MySQL-backed graph.Saver using a go-sql-driver DSN,
// e.g. "user:pass@tcp(127.0.0.1:3306)/pregel?parseTime=true".
func NewMySQLSaver(dsn string) (*SQLSaver, error) {
	return openSQLSaver("mysql", dsn)
}
