package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-atlas/internal/config"
	"github.com/mvp-joe/project-atlas/internal/storage"
)

var callersRoot string

// callersCmd represents the callers command
var callersCmd = &cobra.Command{
	Use:   "callers <target>",
	Short: "List indexed call sites resolved to a target",
	Long: `Callers reads the signature store written by "atlas index" and lists every
call site whose resolved target matches exactly.

Targets look like "Class.method" for same-file calls and
"pkg.module.Class.method" or "src/utils.fn" for calls into other files.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(callersRoot)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		return runCallers(cmd.OutOrStdout(), root, args[0], cfg)
	},
}

func init() {
	rootCmd.AddCommand(callersCmd)
	callersCmd.Flags().StringVar(&callersRoot, "root", ".", "Codebase root holding the store")
}

func runCallers(w io.Writer, rootDir, target string, cfg *config.Config) error {
	store, err := storage.Open(cfg.StoragePath(rootDir))
	if err != nil {
		return err
	}
	defer store.Close()

	calls, err := store.CallersOf(target)
	if err != nil {
		return err
	}
	if len(calls) == 0 {
		fmt.Fprintf(w, "No callers of %s\n", target)
		return nil
	}
	for _, c := range calls {
		fmt.Fprintf(w, "%s:%d\t%s\t%s\n", c.File, c.Line, c.Caller, c.Classification)
	}
	return nil
}
