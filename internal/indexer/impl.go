package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/project-atlas/internal/engine"
	"github.com/mvp-joe/project-atlas/internal/grammar"
	"github.com/mvp-joe/project-atlas/internal/imports"
	"github.com/mvp-joe/project-atlas/internal/storage"
)

type indexer struct {
	config    *Config
	store     *storage.Store
	discovery *FileDiscovery
	cache     *grammar.Cache
	ownsCache bool
	engine    *engine.Engine
	progress  ProgressReporter
	logger    *slog.Logger
}

// Option configures an indexer.
type Option func(*indexer)

// WithProgress sets the progress reporter.
func WithProgress(p ProgressReporter) Option {
	return func(i *indexer) {
		if p != nil {
			i.progress = p
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *indexer) { i.logger = l }
}

// WithCache shares an existing grammar cache instead of creating one.
func WithCache(c *grammar.Cache) Option {
	return func(i *indexer) { i.cache = c }
}

// New creates an indexer writing into store.
func New(config *Config, store *storage.Store, opts ...Option) (Indexer, error) {
	root, err := filepath.Abs(config.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", config.RootDir, err)
	}
	cfg := *config
	cfg.RootDir = root
	config = &cfg

	discovery, err := NewFileDiscovery(config.RootDir, config.CodePatterns, config.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	idx := &indexer{
		config:    config,
		store:     store,
		discovery: discovery,
		progress:  &NoOpProgressReporter{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.cache == nil {
		idx.cache = grammar.NewCache()
		idx.ownsCache = true
	}

	engineOpts := []engine.Option{
		engine.WithRootDir(config.RootDir),
		engine.WithWorkers(config.Workers),
		engine.WithLogger(idx.logger),
	}
	if len(config.Languages) > 0 {
		engineOpts = append(engineOpts, engine.WithLanguages(config.Languages...))
	}
	idx.engine = engine.New(idx.cache, engineOpts...)

	return idx, nil
}

// moduleSetKey stores the fingerprint of the discovered file list. Import
// filtering depends on it, so a change invalidates every stored file.
const moduleSetKey = "module_set"

// Index implements Indexer.
func (idx *indexer) Index(ctx context.Context) (*Stats, error) {
	start := time.Now()

	if err := idx.engine.Warm(); err != nil {
		return nil, err
	}

	idx.progress.OnDiscoveryStart()
	files, err := idx.discover()
	if err != nil {
		return nil, err
	}
	idx.progress.OnDiscoveryComplete(len(files))
	idx.logger.Info("index.discovered", "root", idx.config.RootDir, "files", len(files))

	stored, err := idx.store.FileHashes()
	if err != nil {
		return nil, err
	}

	runID, err := idx.store.BeginRun()
	if err != nil {
		return nil, err
	}
	stats := &Stats{RunID: runID}

	present := make(map[string]bool, len(files))
	for _, rel := range files {
		present[rel] = true
	}
	for rel := range stored {
		if present[rel] {
			continue
		}
		if err := idx.store.DeleteFile(rel); err != nil {
			return nil, err
		}
		stats.Removed++
		idx.logger.Debug("index.file.removed", "path", rel)
	}

	fingerprint := moduleFingerprint(files)
	previous, _, err := idx.store.Metadata(moduleSetKey)
	if err != nil {
		return nil, err
	}
	force := previous != fingerprint
	if force && previous != "" {
		idx.logger.Info("index.modules.changed", "files", len(files))
	}
	idx.engine.SetModules(imports.NewModules(files...))

	hashes := idx.hashFiles(files)
	var changed []string
	for _, rel := range files {
		h, ok := hashes[rel]
		if !force && ok && stored[rel] == h {
			stats.Unchanged++
			continue
		}
		changed = append(changed, rel)
	}
	idx.logger.Info("index.classify", "changed", len(changed), "unchanged", stats.Unchanged, "removed", stats.Removed)

	if err := idx.extract(ctx, changed, stats); err != nil {
		return nil, err
	}
	if err := idx.store.SetMetadata(moduleSetKey, fingerprint); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	if err := idx.store.FinishRun(runID, stats.RunCounts); err != nil {
		return nil, err
	}
	idx.progress.OnComplete(stats)
	idx.logger.Info("index.done",
		"run", runID,
		"indexed", stats.Indexed,
		"unchanged", stats.Unchanged,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"removed", stats.Removed,
		"calls", stats.Calls.Calls,
		"elapsed", stats.Duration,
	)
	return stats, nil
}

// IndexFiles implements Indexer.
func (idx *indexer) IndexFiles(ctx context.Context, paths []string) (*Stats, error) {
	start := time.Now()

	files, err := idx.discover()
	if err != nil {
		return nil, err
	}
	previous, _, err := idx.store.Metadata(moduleSetKey)
	if err != nil {
		return nil, err
	}
	if previous != moduleFingerprint(files) {
		idx.logger.Debug("index.incremental.fallback", "reason", "module_set_changed")
		return idx.Index(ctx)
	}

	present := make(map[string]bool, len(files))
	for _, rel := range files {
		present[rel] = true
	}
	var changed []string
	seen := make(map[string]bool)
	for _, p := range paths {
		rel := idx.relPath(p)
		if present[rel] && !seen[rel] {
			seen[rel] = true
			changed = append(changed, rel)
		}
	}
	if len(changed) == 0 {
		return &Stats{Duration: time.Since(start)}, nil
	}

	if err := idx.engine.Warm(); err != nil {
		return nil, err
	}
	idx.engine.SetModules(imports.NewModules(files...))

	stored, err := idx.store.FileHashes()
	if err != nil {
		return nil, err
	}
	runID, err := idx.store.BeginRun()
	if err != nil {
		return nil, err
	}
	stats := &Stats{RunID: runID}

	hashes := idx.hashFiles(changed)
	var todo []string
	for _, rel := range changed {
		if h, ok := hashes[rel]; ok && stored[rel] == h {
			stats.Unchanged++
			continue
		}
		todo = append(todo, rel)
	}

	if err := idx.extract(ctx, todo, stats); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	if err := idx.store.FinishRun(runID, stats.RunCounts); err != nil {
		return nil, err
	}
	idx.progress.OnComplete(stats)
	idx.logger.Info("index.incremental.done", "run", runID, "indexed", stats.Indexed, "unchanged", stats.Unchanged, "failed", stats.Failed)
	return stats, nil
}

// Close implements Indexer.
func (idx *indexer) Close() error {
	if idx.ownsCache {
		idx.cache.Close()
	}
	return nil
}

// extract runs the engine over rel paths and writes every result.
func (idx *indexer) extract(ctx context.Context, rels []string, stats *Stats) error {
	idx.progress.OnFileProcessingStart(len(rels))

	return idx.engine.Run(ctx, rels, func(rel string, res *engine.Result, err error) error {
		defer idx.progress.OnFileProcessed(rel)

		switch {
		case err != nil && engine.IsSkip(err):
			stats.Skipped++
			idx.logger.Debug("index.file.skipped", "path", rel, "error", err)
			return nil
		case err != nil:
			stats.Failed++
			idx.logger.Warn("index.file.failed", "path", rel, "error", err)
			return nil
		}

		if err := idx.store.PutFile(&storage.FileRecord{
			Path:        res.Path,
			Language:    res.Language,
			ContentHash: res.Hash,
			Signature:   res.Signature,
			Imports:     res.Imports,
			Stats:       res.Stats,
		}); err != nil {
			return err
		}
		stats.Indexed++
		stats.Calls.Add(res.Stats)
		return nil
	})
}

// discover returns the root-relative paths of supported source files.
func (idx *indexer) discover() ([]string, error) {
	abs, err := idx.discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	var out []string
	for _, p := range abs {
		if idx.engine.LanguageFor(p) == "" {
			continue
		}
		out = append(out, idx.relPath(p))
	}
	return out, nil
}

// hashFiles hashes rel paths in parallel. Unreadable files are left out so
// they are always re-extracted (and reported by the engine).
func (idx *indexer) hashFiles(rels []string) map[string]string {
	results := make([]string, len(rels))

	g := new(errgroup.Group)
	g.SetLimit(max(idx.config.Workers, 4))
	for i, rel := range rels {
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(idx.config.RootDir, filepath.FromSlash(rel)))
			if err == nil {
				results[i] = engine.Hash(data)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]string, len(rels))
	for i, rel := range rels {
		if results[i] != "" {
			out[rel] = results[i]
		}
	}
	return out
}

func (idx *indexer) relPath(p string) string {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(idx.config.RootDir, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func moduleFingerprint(files []string) string {
	return engine.Hash([]byte(strings.Join(files, "\n")))
}
