package indexer

import (
	"context"
	"time"

	"github.com/mvp-joe/project-atlas/internal/resolve"
	"github.com/mvp-joe/project-atlas/internal/storage"
)

// Indexer keeps the signature store in sync with a codebase.
type Indexer interface {
	// Index discovers every source file, re-extracts the ones whose content
	// changed since the last run and drops the ones that disappeared.
	Index(ctx context.Context) (*Stats, error)

	// IndexFiles re-extracts the given files (absolute or root relative).
	// Files that no longer exist are removed. Adding or removing a file
	// changes the internal module set, which triggers a full Index.
	IndexFiles(ctx context.Context, paths []string) (*Stats, error)

	// Close releases all resources held by the indexer. The store is not closed.
	Close() error
}

// Config contains configuration for the indexer.
type Config struct {
	// Root directory of the codebase to index
	RootDir string

	// Paths configuration
	CodePatterns   []string
	IgnorePatterns []string

	// Enabled language names; empty means all
	Languages []string

	// Extraction workers; zero means one per CPU
	Workers int
}

// Stats summarizes one index run.
type Stats struct {
	RunID string `json:"run_id,omitempty"`
	storage.RunCounts
	Calls    resolve.Stats `json:"calls"`
	Duration time.Duration `json:"duration"`
}
