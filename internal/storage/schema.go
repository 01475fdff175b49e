package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is bumped whenever a table definition changes. A store with a
// different version is rebuilt from scratch by the indexer.
const SchemaVersion = "1"

// CreateSchema creates every table and index of the signature store.
// It is idempotent and runs in one transaction.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Enable foreign keys (must be set for each connection)
	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"files", createFilesTable},
		{"call_sites", createCallSitesTable},
		{"index_runs", createIndexRunsTable},
		{"store_metadata", createStoreMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO store_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap store_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion returns the stored schema version, or "0" for an empty database.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='store_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check store_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM store_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in store_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
    file_path TEXT PRIMARY KEY,              -- relative path from the project root, slash separated
    language TEXT NOT NULL,
    content_hash TEXT NOT NULL,              -- hex xxh3-128 of the file content
    signature_json TEXT NOT NULL,            -- resolved structural signature
    imports_json TEXT NOT NULL DEFAULT '[]', -- internal imports after filtering
    call_count INTEGER NOT NULL DEFAULT 0,
    resolved_count INTEGER NOT NULL DEFAULT 0,
    has_errors INTEGER NOT NULL DEFAULT 0,   -- parser recovered from syntax errors
    indexed_at TEXT NOT NULL
)`

const createCallSitesTable = `
CREATE TABLE IF NOT EXISTS call_sites (
    file_path TEXT NOT NULL,
    caller TEXT NOT NULL,                    -- dotted path of the enclosing function (Class.method.inner)
    callee TEXT NOT NULL,
    qualifier TEXT NOT NULL DEFAULT '',
    classification TEXT NOT NULL DEFAULT '', -- SAME_FILE, INTERNAL_CODEBASE or empty
    target TEXT NOT NULL DEFAULT '',
    line INTEGER NOT NULL,
    FOREIGN KEY (file_path) REFERENCES files(file_path) ON DELETE CASCADE
)`

const createIndexRunsTable = `
CREATE TABLE IF NOT EXISTS index_runs (
    id TEXT PRIMARY KEY,                     -- uuid
    started_at TEXT NOT NULL,
    finished_at TEXT,
    files_indexed INTEGER NOT NULL DEFAULT 0,
    files_unchanged INTEGER NOT NULL DEFAULT 0,
    files_skipped INTEGER NOT NULL DEFAULT 0,
    files_failed INTEGER NOT NULL DEFAULT 0,
    files_removed INTEGER NOT NULL DEFAULT 0
)`

const createStoreMetadataTable = `
CREATE TABLE IF NOT EXISTS store_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_files_language ON files(language)",
	"CREATE INDEX IF NOT EXISTS idx_call_sites_file ON call_sites(file_path)",
	"CREATE INDEX IF NOT EXISTS idx_call_sites_target ON call_sites(target)",
	"CREATE INDEX IF NOT EXISTS idx_index_runs_started ON index_runs(started_at)",
}
