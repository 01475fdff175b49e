// Package engine runs the per-file pipeline: read, parse once, extract the
// structural signature and imports, build bindings and resolve calls.
package engine

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/project-atlas/internal/binding"
	"github.com/mvp-joe/project-atlas/internal/grammar"
	"github.com/mvp-joe/project-atlas/internal/imports"
	"github.com/mvp-joe/project-atlas/internal/lang"
	"github.com/mvp-joe/project-atlas/internal/resolve"
	"github.com/mvp-joe/project-atlas/internal/signature"
)

// Result is everything the pipeline produced for one file.
type Result struct {
	Path      string                         `json:"path"` // relative to the engine root, slash separated
	Language  string                         `json:"language"`
	Hash      string                         `json:"content_hash"`
	Signature *signature.StructuralSignature `json:"signature"`
	Imports   []imports.Import               `json:"imports"`
	Bindings  *binding.Bindings              `json:"bindings"`
	Stats     resolve.Stats                  `json:"stats"`
}

// Engine is safe for concurrent use. All per-file state lives on the stack
// of ExtractFile; only the grammar cache is shared.
type Engine struct {
	cache     *grammar.Cache
	extractor *signature.Extractor
	rootDir   string
	modules   *imports.Modules
	languages map[string]bool
	workers   int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRootDir sets the directory relative paths resolve against.
func WithRootDir(dir string) Option {
	return func(e *Engine) { e.rootDir = dir }
}

// WithModules sets the internal module set used to filter imports. Without
// it every import is kept.
func WithModules(mods *imports.Modules) Option {
	return func(e *Engine) { e.modules = mods }
}

// WithLanguages restricts the engine to the named languages.
func WithLanguages(names ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(names))
		for _, n := range names {
			e.languages[n] = true
		}
	}
}

// WithWorkers bounds Run's concurrency. Zero or less means one per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over a shared grammar cache.
func New(cache *grammar.Cache, opts ...Option) *Engine {
	e := &Engine{
		cache:     cache,
		extractor: signature.NewExtractor(cache),
		rootDir:   ".",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	return e
}

// SetModules replaces the internal module set. Not safe to call during Run.
func (e *Engine) SetModules(mods *imports.Modules) {
	e.modules = mods
}

// Languages returns the enabled language names, or every registered one
// when the engine is unrestricted.
func (e *Engine) Languages() []string {
	if e.languages == nil {
		return lang.Names()
	}
	var out []string
	for _, n := range lang.Names() {
		if e.languages[n] {
			out = append(out, n)
		}
	}
	return out
}

// Warm compiles grammars and queries for every enabled language so a broken
// query definition fails the run before any file is read.
func (e *Engine) Warm() error {
	return e.cache.Warm(e.Languages()...)
}

// LanguageFor returns the enabled language of path, or "".
func (e *Engine) LanguageFor(path string) string {
	spec := lang.ForFile(path)
	if spec == nil || (e.languages != nil && !e.languages[spec.Name]) {
		return ""
	}
	return spec.Name
}

// Hash returns the hex xxh3-128 digest of source.
func Hash(source []byte) string {
	sum := xxh3.Hash128(source).Bytes()
	return hex.EncodeToString(sum[:])
}

// ExtractFile reads path (absolute, or relative to the root) and runs the
// whole pipeline on it.
func (e *Engine) ExtractFile(path string) (*Result, error) {
	abs, rel := e.paths(path)

	language := e.LanguageFor(abs)
	if language == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, rel)
	}

	source, err := os.ReadFile(abs)
	if err != nil {
		return nil, &ReadError{Path: rel, Err: err}
	}
	return e.ExtractSource(rel, language, source)
}

// ExtractSource runs the pipeline on in-memory source. relPath is used for
// resolving relative imports and is reported back in the result.
func (e *Engine) ExtractSource(relPath, language string, source []byte) (*Result, error) {
	if lang.ForName(language) == nil || (e.languages != nil && !e.languages[language]) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	if signature.Undecodable(source) {
		return nil, fmt.Errorf("%s: %w", relPath, ErrUndecodable)
	}

	queries, err := e.cache.Queries(language)
	if err != nil {
		return nil, err
	}
	tree, err := e.cache.Parse(language, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", relPath, err)
	}
	defer tree.Close()
	root := tree.RootNode()

	sig, err := e.extractor.ExtractTree(language, root, source)
	if err != nil {
		return nil, err
	}
	imps := imports.Filter(relPath, language, imports.FromTree(queries, language, root, source), e.modules)

	b := binding.Build(sig, imps)
	stats := resolve.Resolve(sig, b)

	e.logger.Debug("engine.file.extracted",
		"path", relPath,
		"language", language,
		"functions", len(sig.Functions),
		"classes", len(sig.Classes),
		"calls", stats.Calls,
		"resolved", stats.SameFile+stats.InternalCodebase,
		"partial", sig.HasErrors,
	)

	return &Result{
		Path:      relPath,
		Language:  language,
		Hash:      Hash(source),
		Signature: sig,
		Imports:   imps,
		Bindings:  b,
		Stats:     stats,
	}, nil
}

// ResultFunc receives the outcome of one file. Calls are serialized. A
// non-nil return aborts the run.
type ResultFunc func(path string, res *Result, err error) error

// Run extracts every path on a bounded worker pool. Per-file errors are
// handed to fn and do not stop the run; a fatal error, an error from fn or a
// cancelled context does. Cancellation is observed between files.
func (e *Engine) Run(ctx context.Context, paths []string, fn ResultFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	var mu sync.Mutex
	for _, p := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.ExtractFile(p)
			if err != nil && IsFatal(err) {
				return err
			}
			if err != nil {
				e.logger.Debug("engine.file.skipped", "path", p, "error", err)
			}
			mu.Lock()
			defer mu.Unlock()
			return fn(p, res, err)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (e *Engine) paths(path string) (abs, rel string) {
	abs = path
	if !filepath.IsAbs(path) {
		abs = filepath.Join(e.rootDir, path)
	}
	rel = path
	if r, err := filepath.Rel(e.rootDir, abs); err == nil && !startsWithDotDot(r) {
		rel = r
	}
	return abs, filepath.ToSlash(rel)
}

func startsWithDotDot(p string) bool {
	return p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator))
}
