package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-atlas/internal/config"
	"github.com/mvp-joe/project-atlas/internal/engine"
	"github.com/mvp-joe/project-atlas/internal/grammar"
	"github.com/mvp-joe/project-atlas/internal/imports"
	"github.com/mvp-joe/project-atlas/internal/indexer"
)

var (
	extractImports bool
	extractRoot    string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the resolved structural signature of one file as JSON",
	Long: `Extract parses one Python, JavaScript or TypeScript file, builds its
structural signature and resolves every call site against the file itself and
the codebase under --root.

Examples:
  # Signature of a file
  atlas extract app/service.py

  # Include the internal imports and binding tables
  atlas extract --imports web/src/index.ts
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(extractRoot)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		return runExtract(cmd.OutOrStdout(), root, args[0], extractImports, cfg)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&extractImports, "imports", false, "Include internal imports and binding tables")
	extractCmd.Flags().StringVar(&extractRoot, "root", ".", "Codebase root used to tell internal imports from external ones")
}

func runExtract(w io.Writer, rootDir, path string, withImports bool, cfg *config.Config) error {
	cache := grammar.NewCache()
	defer cache.Close()

	e := engine.New(cache,
		engine.WithRootDir(rootDir),
		engine.WithLanguages(cfg.Languages...),
		engine.WithModules(codebaseModules(rootDir, cfg)),
	)

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	res, err := e.ExtractFile(abs)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", path, err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if withImports {
		return enc.Encode(res)
	}
	return enc.Encode(res.Signature)
}

// codebaseModules discovers the source files under rootDir. A discovery
// failure yields nil, which keeps every import.
func codebaseModules(rootDir string, cfg *config.Config) *imports.Modules {
	fd, err := indexer.NewFileDiscovery(rootDir, cfg.Paths.Code, cfg.Paths.Ignore)
	if err != nil {
		slog.Warn("extract.discovery.failed", "error", err)
		return nil
	}
	files, err := fd.DiscoverFiles()
	if err != nil {
		slog.Warn("extract.discovery.failed", "error", err)
		return nil
	}
	mods := imports.NewModules()
	for _, f := range files {
		if rel, err := filepath.Rel(rootDir, f); err == nil {
			mods.Add(filepath.ToSlash(rel))
		}
	}
	return mods
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
