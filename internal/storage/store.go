// Package storage persists resolved signatures in SQLite, keyed by file path
// and content hash, so unchanged files are never extracted twice.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite signature store. It owns its connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the store at path and ensures the schema.
// path may be ":memory:".
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	// one connection: writes serialize anyway and :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// New wraps an existing connection. The schema must already exist.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database location, or "" for a wrapped connection.
func (s *Store) Path() string {
	return s.path
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.db.Close()
}
