package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/project-atlas/internal/signature"
	"github.com/mvp-joe/project-atlas/internal/storage"
)

// Test Plan for Indexer:
// - A first run extracts every supported file and records a run
// - A second run with no changes extracts nothing
// - Editing one file re-extracts only that file
// - Adding or removing a file re-extracts everything (module set changed)
// - Cross-file calls resolve through the stored module set
// - Unsupported and binary files are skipped, not failed
// - IndexFiles handles edits directly and falls back to Index for new files
// - Progress callbacks fire for every processed file

type recordingProgress struct {
	NoOpProgressReporter
	mu        sync.Mutex
	total     int
	processed []string
	completed int
}

func (r *recordingProgress) OnFileProcessingStart(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingProgress) OnFileProcessed(rel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, rel)
}

func (r *recordingProgress) OnComplete(*Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

var projectFiles = map[string]string{
	"app/__init__.py": "",
	"app/util.py":     "class Helper:\n    def do(self):\n        pass\n",
	"app/main.py":     "from app.util import Helper\nimport os\n\n\ndef main():\n    h = Helper()\n    h.do()\n    os.getcwd()\n",
	"web/index.js":    "import { get } from './http';\n\nexport function load() {\n  return get('/x');\n}\n",
	"web/http.js":     "export function get(url) {\n  return fetch(url);\n}\n",
	"notes.txt":       "not code",
}

func newTestIndexer(t *testing.T, dir string, progress ProgressReporter) (Indexer, *storage.Store) {
	t.Helper()
	store := storage.NewTestStore(t)
	idx, err := New(&Config{
		RootDir:        dir,
		CodePatterns:   []string{"**/*.py", "**/*.js"},
		IgnorePatterns: []string{"node_modules/**"},
		Workers:        2,
	}, store, WithProgress(progress))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx, store
}

func TestIndexer_Index(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, projectFiles)
	progress := &recordingProgress{}
	idx, store := newTestIndexer(t, dir, progress)
	ctx := context.Background()

	stats, err := idx.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Indexed)
	assert.Zero(t, stats.Unchanged)
	assert.Zero(t, stats.Failed)
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 5, progress.total)
	assert.Len(t, progress.processed, 5)
	assert.Equal(t, 1, progress.completed)

	files, err := store.ListFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"app/__init__.py", "app/main.py", "app/util.py", "web/http.js", "web/index.js"}, files)

	rec, err := store.GetFile("app/main.py")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, rec.Imports, 1, "os is not an internal module")

	callers, err := store.CallersOf("app.util.Helper.do")
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, "main", callers[0].Caller)
	assert.Equal(t, signature.InternalCodebase, callers[0].Classification)

	callers, err = store.CallersOf("web/http.get")
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, "web/index.js", callers[0].File)

	run, err := store.LastRun()
	require.NoError(t, err)
	assert.Equal(t, stats.RunID, run.ID)
	assert.Equal(t, 5, run.Indexed)
}

func TestIndexer_Incremental(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, projectFiles)
	idx, store := newTestIndexer(t, dir, nil)
	ctx := context.Background()

	_, err := idx.Index(ctx)
	require.NoError(t, err)

	t.Run("no changes", func(t *testing.T) {
		stats, err := idx.Index(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.Indexed)
		assert.Equal(t, 5, stats.Unchanged)
	})

	t.Run("one edit", func(t *testing.T) {
		writeTree(t, dir, map[string]string{"app/util.py": "class Helper:\n    def do(self):\n        return 1\n"})
		stats, err := idx.Index(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Indexed)
		assert.Equal(t, 4, stats.Unchanged)
	})

	t.Run("file added", func(t *testing.T) {
		writeTree(t, dir, map[string]string{"app/extra.py": "def f():\n    pass\n"})
		stats, err := idx.Index(ctx)
		require.NoError(t, err)
		assert.Equal(t, 6, stats.Indexed)
		assert.Zero(t, stats.Unchanged)
	})

	t.Run("file removed", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(dir, "app", "extra.py")))
		stats, err := idx.Index(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Removed)
		assert.Equal(t, 5, stats.Indexed)

		rec, err := store.GetFile("app/extra.py")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestIndexer_SkipsBinary(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"ok.py":   "x = 1\n",
		"blob.py": "\x00\x01\x02",
	})
	idx, store := newTestIndexer(t, dir, nil)

	stats, err := idx.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Failed)

	files, err := store.ListFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.py"}, files)

	// a skipped file does not change the module set on the next run
	stats, err = idx.Index(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Indexed)
	assert.Equal(t, 1, stats.Unchanged)
	assert.Equal(t, 1, stats.Skipped)
}

func TestIndexer_IndexFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTree(t, dir, projectFiles)
	idx, store := newTestIndexer(t, dir, nil)
	ctx := context.Background()

	_, err := idx.Index(ctx)
	require.NoError(t, err)

	writeTree(t, dir, map[string]string{"web/http.js": "export function get(url) {\n  return request(url);\n}\n"})
	stats, err := idx.IndexFiles(ctx, []string{filepath.Join(dir, "web", "http.js"), "app/util.py", "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, 1, stats.Unchanged)

	rec, err := store.GetFile("web/http.js")
	require.NoError(t, err)
	require.Len(t, rec.Signature.Functions, 1)
	assert.Equal(t, "request", rec.Signature.Functions[0].FunctionCalls[0].Callee)

	writeTree(t, dir, map[string]string{"web/new.js": "export const n = 1;\n"})
	stats, err = idx.IndexFiles(ctx, []string{"web/new.js"})
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Indexed, "a new file falls back to a full run")

	stats, err = idx.IndexFiles(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Indexed)
}
