package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/project-atlas/internal/indexer"
)

// CLIProgressReporter implements progress reporting with a progress bar.
type CLIProgressReporter struct {
	out     io.Writer
	quiet   bool
	fileBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{out: out, quiet: quiet}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, "Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(files int) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "Found %s source files\n", formatNumber(files))
}

func (c *CLIProgressReporter) OnFileProcessingStart(totalFiles int) {
	if c.quiet || totalFiles == 0 {
		return
	}
	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Extracting signatures"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnFileProcessed(relPath string) {
	if c.quiet || c.fileBar == nil {
		return
	}
	_ = c.fileBar.Add(1)
}

func (c *CLIProgressReporter) OnComplete(stats *indexer.Stats) {
	if c.fileBar != nil {
		_ = c.fileBar.Finish()
		c.fileBar = nil
	}
	if c.quiet {
		return
	}

	calls := stats.Calls
	fmt.Fprintf(c.out, "✓ Indexing complete in %.1fs\n", stats.Duration.Seconds())
	fmt.Fprintf(c.out, "  Indexed:   %s\n", formatNumber(stats.Indexed))
	fmt.Fprintf(c.out, "  Unchanged: %s\n", formatNumber(stats.Unchanged))
	if stats.Skipped+stats.Failed+stats.Removed > 0 {
		fmt.Fprintf(c.out, "  Skipped:   %s  Failed: %s  Removed: %s\n",
			formatNumber(stats.Skipped), formatNumber(stats.Failed), formatNumber(stats.Removed))
	}
	if calls.Calls > 0 {
		fmt.Fprintf(c.out, "  Calls:     %s (same file %s, internal %s, unresolved %s)\n",
			formatNumber(calls.Calls), formatNumber(calls.SameFile),
			formatNumber(calls.InternalCodebase), formatNumber(calls.Unresolved))
	}
}

// formatNumber formats integer with thousand separators.
// Examples: 1234 -> "1,234", 1234567 -> "1,234,567"
func formatNumber(n int) string {
	str := fmt.Sprintf("%d", n)
	if n < 1000 {
		return str
	}
	var result []byte
	for i := range len(str) {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, str[i])
	}
	return string(result)
}
