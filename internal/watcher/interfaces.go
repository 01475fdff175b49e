package watcher

import "context"

// FileWatcher reports batches of changed source files under a root directory.
type FileWatcher interface {
	// Start begins watching. callback receives the absolute paths of files
	// written, created or removed since the last batch, sorted, once no new
	// event has arrived for the debounce period. Callbacks never overlap.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the watcher and waits for the event loop to exit. It is
	// safe to call more than once.
	Stop() error
}
