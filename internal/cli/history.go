package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/crunch/internal/journal"
)

// latestRun selects the most recently started run.
const latestRun = "latest"

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Run     string
	Limit   int
}

// RunHistory is one run and its recorded completions.
type RunHistory struct {
	Run         journal.RunSummary   `json:"run"`
	Completions []journal.Completion `json:"completions"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled runs and completions",
		Long: `Show runs recorded in a completion journal.

Without --run every run is listed. With --run the completions of that
run are shown, most recent first; "latest" selects the newest run.

Exit codes:
  0 - Success
  2 - Command error (missing journal, unknown run, etc.)

Examples:
  crunch history --journal crunch.db
  crunch history --journal crunch.db --run latest --limit 20`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to the SQLite journal (required)")
	cmd.Flags().StringVar(&opts.Run, "run", "", `run ID to show, or "latest"`)
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum completions to show (0 for all)")
	_ = cmd.MarkFlagRequired("journal")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	// Open would create an empty journal.
	if _, err := os.Stat(opts.Journal); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	store, err := journal.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)

	runs, err := store.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if opts.Run == "" {
		if runs == nil {
			runs = []journal.RunSummary{}
		}
		return f.Success(runs, func(w io.Writer) {
			printRuns(w, runs)
		})
	}

	run, ok := findRun(runs, opts.Run)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.Run))
	}

	completions, err := store.Completions(ctx, run.ID, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read completions", err)
	}
	if completions == nil {
		completions = []journal.Completion{}
	}

	f.RunID = run.ID
	h := RunHistory{Run: run, Completions: completions}
	return f.Success(h, func(w io.Writer) {
		printRunHistory(w, h)
	})
}

// findRun looks up id among runs, which are ordered most recent first.
func findRun(runs []journal.RunSummary, id string) (journal.RunSummary, bool) {
	if id == latestRun {
		if len(runs) == 0 {
			return journal.RunSummary{}, false
		}
		return runs[0], true
	}
	for _, r := range runs {
		if r.ID == id {
			return r, true
		}
	}
	return journal.RunSummary{}, false
}

func printRuns(w io.Writer, runs []journal.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-20s  %10s  %9s  %s\n", "RUN", "STARTED", "SEED", "COMPLETED", "CATALOG")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-20s  %10d  %9d  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Seed, r.Completed, r.Catalog)
	}
}

func printRunHistory(w io.Writer, h RunHistory) {
	fmt.Fprintf(w, "Run %s (seed %d, %d completed)\n\n", h.Run.ID, h.Run.Seed, h.Run.Completed)
	if len(h.Completions) == 0 {
		fmt.Fprintln(w, "No completions recorded.")
		return
	}
	for _, c := range h.Completions {
		fmt.Fprintf(w, "  [tick %d] #%d %s (%s) by %s\n",
			c.Tick, c.ItemID, c.Kind, c.Variant, strings.Join(c.Contributors, ", "))
	}
}
