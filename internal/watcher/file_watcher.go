// Package watcher turns filesystem notifications into debounced batches of
// changed source files.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 500 * time.Millisecond

type fileWatcher struct {
	watcher    *fsnotify.Watcher
	root       string
	extensions map[string]bool
	skipDir    func(relPath string) bool
	debounce   time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer

	cancel   context.CancelFunc
	stopOnce sync.Once
	doneCh   chan struct{}
}

// Option configures a watcher.
type Option func(*fileWatcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(fw *fileWatcher) { fw.debounce = d }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(fw *fileWatcher) { fw.logger = l }
}

// WithSkipDir excludes directories (root relative, slash separated) from
// watching, e.g. node_modules or .atlas.
func WithSkipDir(skip func(relPath string) bool) Option {
	return func(fw *fileWatcher) { fw.skipDir = skip }
}

// New creates a recursive watcher on root for files with the given extensions.
func New(root string, extensions []string, opts ...Option) (FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &fileWatcher{
		watcher:    w,
		root:       root,
		extensions: make(map[string]bool, len(extensions)),
		skipDir:    func(string) bool { return false },
		debounce:   DefaultDebounce,
		logger:     slog.Default(),
		pending:    make(map[string]bool),
		doneCh:     make(chan struct{}),
	}
	for _, ext := range extensions {
		fw.extensions[ext] = true
	}
	for _, opt := range opts {
		opt(fw)
	}

	if err := fw.addTree(root); err != nil {
		w.Close()
		return nil, err
	}
	return fw, nil
}

// Start implements FileWatcher.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	ctx, fw.cancel = context.WithCancel(ctx)
	flushCh := make(chan struct{}, 1)
	go fw.loop(ctx, flushCh, callback)
	return nil
}

// Stop implements FileWatcher.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.doneCh
		} else {
			close(fw.doneCh)
		}
		fw.stopTimer()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *fileWatcher) loop(ctx context.Context, flushCh chan struct{}, callback func([]string)) {
	defer close(fw.doneCh)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addTree(event.Name); err != nil {
						fw.logger.Warn("watch.dir.failed", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !fw.relevant(event) {
				continue
			}
			fw.mu.Lock()
			fw.pending[event.Name] = true
			fw.mu.Unlock()
			fw.resetTimer(flushCh)

		case <-flushCh:
			if files := fw.drain(); len(files) > 0 && callback != nil {
				fw.logger.Debug("watch.batch", "files", len(files))
				callback(files)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("watch.error", "error", err)
		}
	}
}

// drain returns and clears the pending set, sorted.
func (fw *fileWatcher) drain() []string {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	files := make([]string, 0, len(fw.pending))
	for f := range fw.pending {
		files = append(files, f)
	}
	fw.pending = make(map[string]bool)
	sort.Strings(files)
	return files
}

// resetTimer restarts the quiet period; the flush signal never blocks.
func (fw *fileWatcher) resetTimer(flushCh chan struct{}) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, func() {
		select {
		case flushCh <- struct{}{}:
		default:
		}
	})
}

func (fw *fileWatcher) stopTimer() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
		fw.timer = nil
	}
}

// relevant reports whether an event touches a watched source file.
// Renames arrive as Rename on the old name and Create on the new one.
func (fw *fileWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if !fw.extensions[filepath.Ext(event.Name)] {
		return false
	}
	dir := fw.rel(filepath.Dir(event.Name))
	return dir == "." || !fw.skipDir(dir)
}

// addTree adds dir and every non-skipped directory below it.
func (fw *fileWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			fw.logger.Warn("watch.walk.failed", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel := fw.rel(path); rel != "." && fw.skipDir(rel) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn("watch.add.failed", "path", path, "error", err)
		}
		return nil
	})
}

func (fw *fileWatcher) rel(path string) string {
	rel, err := filepath.Rel(fw.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
