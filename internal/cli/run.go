package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/crunch/internal/catalog"
	"github.com/roach88/crunch/internal/config"
	"github.com/roach88/crunch/internal/inbox"
	"github.com/roach88/crunch/internal/journal"
	"github.com/roach88/crunch/internal/scheduler"
	"github.com/roach88/crunch/internal/tui"
	"github.com/roach88/crunch/internal/work"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config  string
	Catalog string
	Journal string
	Inbox   string
	Seed    uint64
	Ticks   uint64
	TUI     bool

	// RunIDs allows overriding the journal run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs journal.RunIDGenerator
}

// RunSummary is printed when a headless run stops.
type RunSummary struct {
	RunID     string                `json:"run_id,omitempty"`
	Tick      uint64                `json:"tick"`
	Open      int                   `json:"open"`
	History   []work.CompletedEntry `json:"history"`
	Workers   []work.WorkerState    `json:"workers"`
	Stats     scheduler.Stats       `json:"stats"`
	Inbox     *inbox.Stats          `json:"inbox,omitempty"`
	Journaled uint64                `json:"journaled"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler",
		Long: `Run the scheduler until interrupted, or for a fixed number of ticks.

Without --tui the run is headless: progress goes to the log on stderr and a
summary is printed when it stops. With --tui a live view shows open items,
recent completions, and worker telemetry.

Completions are journaled to SQLite with --journal. Request files dropped
into the --inbox directory are submitted as they appear (see "crunch submit").

Example:
  crunch run --ticks 600
  crunch run --tui --config crunch.yaml
  crunch run --journal ./crunch.db --inbox ./inbox --seed 7`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to YAML configuration")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "path to a CUE workflow catalog (overrides config)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite completion journal (overrides config)")
	cmd.Flags().StringVar(&opts.Inbox, "inbox", "", "directory watched for request files (overrides config)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed, 0 for time-based (overrides config)")
	cmd.Flags().Uint64Var(&opts.Ticks, "ticks", 0, "stop after this many ticks, 0 to run until interrupted")
	cmd.Flags().BoolVar(&opts.TUI, "tui", false, "show the interactive view")

	return cmd
}

func runScheduler(opts *RunOptions, cmd *cobra.Command) error {
	// The live view owns the terminal, so logs are dropped unless verbose.
	logOut := cmd.ErrOrStderr()
	if opts.TUI && !opts.Verbose {
		logOut = io.Discard
	}
	logger := newLogger(logOut, opts.Verbose)
	slog.SetDefault(logger)

	warn := func(msg string) {
		logger.Warn("configuration adjusted", "detail", msg)
	}
	cfg, err := config.Load(opts.Config, warn)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid configuration", err)
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = opts.Seed
	}
	if opts.Catalog != "" {
		cfg.Catalog = opts.Catalog
	}
	if opts.Journal != "" {
		cfg.Journal = opts.Journal
	}
	if opts.Inbox != "" {
		cfg.Inbox = opts.Inbox
	}

	cat, source, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid catalog", err)
	}
	logger.Info("catalog loaded", "source", source, "kinds", len(cat.Templates()))

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stopSignals := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	rng := work.NewRand(cfg.Seed)
	schedOpts := []scheduler.Option{
		scheduler.WithLogger(logger),
		scheduler.WithWorkers(cfg.Roster(rng)...),
	}

	var (
		writer *journal.Writer
		runID  string
	)
	if cfg.Journal != "" {
		st, err := journal.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		gen := opts.RunIDs
		if gen == nil {
			gen = journal.UUIDv7Generator{}
		}
		runID = gen.Generate()
		run := journal.Run{ID: runID, StartedAt: time.Now().UTC(), Seed: cfg.Seed, Catalog: source}
		if err := st.StartRun(ctx, run); err != nil {
			return WrapExitError(ExitCommandError, "failed to start journal run", err)
		}
		writer = journal.NewWriter(st, runID, cfg.MailboxCapacity, logger)
		schedOpts = append(schedOpts, scheduler.WithRecorder(writer))
		logger.Info("journal ready", "path", cfg.Journal, "run", runID)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	if opts.Ticks > 0 {
		schedOpts = append(schedOpts, scheduler.WithObserver(func(snap scheduler.Snapshot) {
			if snap.Tick >= opts.Ticks {
				stop()
			}
		}))
	}

	s := scheduler.New(cfg.Scheduler(), cat, schedOpts...)

	// The writer outlives the scheduler so the last completions are flushed.
	writerCtx, stopWriter := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWriter()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer stopWriter()
		defer stop()
		return s.Run(gctx)
	})
	if writer != nil {
		g.Go(func() error {
			return writer.Run(writerCtx)
		})
	}
	var watcher *inbox.Watcher
	if cfg.Inbox != "" {
		watcher = inbox.New(cfg.Inbox, s, inbox.WithLogger(logger))
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}
	if opts.TUI {
		g.Go(func() error {
			defer stop()
			p := tea.NewProgram(tui.New(s, cfg.Interval(), rng),
				tea.WithContext(gctx),
				tea.WithAltScreen(),
				tea.WithOutput(cmd.OutOrStdout()))
			_, err := p.Run()
			if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "scheduler error", err)
	}

	if opts.TUI {
		return nil
	}

	snap := s.Snapshot()
	summary := RunSummary{
		RunID:   runID,
		Tick:    snap.Tick,
		Open:    len(snap.OpenItems),
		History: snap.History,
		Workers: snap.Workers,
		Stats:   snap.Stats,
	}
	if watcher != nil {
		st := watcher.Stats()
		summary.Inbox = &st
	}
	if writer != nil {
		summary.Journaled = writer.Written()
	}

	f := newFormatter(opts.RootOptions, cmd)
	f.RunID = runID
	return f.Success(summary, func(w io.Writer) {
		printRunSummary(w, summary)
	})
}

// loadCatalog returns the catalog at path, or the built-in one, and a label
// naming where it came from.
func loadCatalog(path string) (*catalog.Catalog, string, error) {
	if path == "" {
		c, err := catalog.Default()
		return c, "default", err
	}
	c, err := catalog.LoadFile(path)
	return c, path, err
}

func printRunSummary(w io.Writer, s RunSummary) {
	fmt.Fprintf(w, "Stopped after %d ticks: %d completed, %d open\n", s.Tick, s.Stats.Completed, s.Open)
	if s.RunID != "" {
		fmt.Fprintf(w, "Journal run %s: %d completions written\n", s.RunID, s.Journaled)
	}
	if s.Inbox != nil {
		fmt.Fprintf(w, "Inbox: %d accepted, %d deferred, %d rejected\n", s.Inbox.Accepted, s.Inbox.Deferred, s.Inbox.Rejected)
	}
	if dropped := s.Stats.DroppedDispatches + s.Stats.DroppedBuffs + s.Stats.JournalDropped; dropped > 0 {
		fmt.Fprintf(w, "Backpressure: %d dispatches, %d buffs, %d journal entries dropped\n",
			s.Stats.DroppedDispatches, s.Stats.DroppedBuffs, s.Stats.JournalDropped)
	}

	if len(s.History) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Recently completed:")
		for _, e := range s.History {
			fmt.Fprintf(w, "  #%-4d %-14s %-9s tick %-6d %s\n", e.ID, e.Kind, e.Variant, e.Tick, strings.Join(e.Contributors, ", "))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Workers:")
	for _, st := range s.Workers {
		fmt.Fprintf(w, "  %-12s energy %7.1f  focus %7.1f  stress %5.1f  ticks %d\n",
			st.Name, st.Resources.Energy, st.Resources.Focus, st.Resources.Stress, st.Processed)
	}
}
