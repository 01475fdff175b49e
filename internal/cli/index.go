package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-atlas/internal/config"
	"github.com/mvp-joe/project-atlas/internal/indexer"
	"github.com/mvp-joe/project-atlas/internal/storage"
	"github.com/mvp-joe/project-atlas/internal/watcher"
)

var (
	quietFlag bool
	watchFlag bool
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Extract and resolve every source file of a codebase into the signature store",
	Long: `Index discovers Python, JavaScript and TypeScript files, extracts their
structural signatures, resolves call sites and stores the results in SQLite
(.atlas/atlas.db by default). Files whose content has not changed since the
last run are skipped.

Examples:
  # Index the current directory
  atlas index

  # Index another directory without progress output
  atlas index ../project --quiet

  # Keep the store up to date as files change
  atlas index --watch
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dir := mustGetwd()
		if len(args) == 1 {
			dir = args[0]
		}
		root, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		return runIndex(ctx, cmd.OutOrStdout(), root, cfg, quietFlag, watchFlag)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	indexCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and reindex incrementally")
}

func runIndex(ctx context.Context, out io.Writer, rootDir string, cfg *config.Config, quiet, watch bool) error {
	store, err := storage.Open(cfg.StoragePath(rootDir))
	if err != nil {
		return err
	}
	defer store.Close()

	idx, err := indexer.New(cfg.ToIndexerConfig(rootDir), store,
		indexer.WithProgress(NewCLIProgressReporter(out, quiet)),
	)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}
	defer idx.Close()

	if _, err := idx.Index(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("indexing cancelled")
		}
		return fmt.Errorf("indexing failed: %w", err)
	}
	if !watch {
		return nil
	}

	discovery, err := indexer.NewFileDiscovery(rootDir, cfg.Paths.Code, cfg.Paths.Ignore)
	if err != nil {
		return err
	}
	fw, err := watcher.New(rootDir, cfg.Extensions(), watcher.WithSkipDir(discovery.IgnoresDir))
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fw.Stop()

	if !quiet {
		fmt.Fprintln(out, "Watching for changes (Ctrl+C to stop)...")
	}
	err = fw.Start(ctx, func(files []string) {
		if _, err := idx.IndexFiles(ctx, files); err != nil && ctx.Err() == nil {
			slog.Error("watch.reindex.failed", "files", len(files), "error", err)
		}
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	if !quiet {
		fmt.Fprintln(out, "Watch mode stopped")
	}
	return nil
}
