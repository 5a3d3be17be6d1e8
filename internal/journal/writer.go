package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/crunch/internal/work"
)

// DefaultBacklog bounds the Writer's queue unless configured.
const DefaultBacklog = 10

// ErrJournalBacklog is returned by Record when the writer has fallen behind.
var ErrJournalBacklog = errors.New("journal backlog full")

// Writer moves completions from the tick goroutine to the database.
//
// Thread-safety model:
//   - Record(): safe from any goroutine, never blocks
//   - Run(): must be called from exactly one goroutine
type Writer struct {
	store   *Store
	runID   string
	queue   chan work.CompletedEntry
	logger  *slog.Logger
	written atomic.Uint64
	failed  atomic.Uint64
}

// NewWriter creates a writer for runID. backlog <= 0 uses DefaultBacklog.
func NewWriter(store *Store, runID string, backlog int, logger *slog.Logger) *Writer {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:  store,
		runID:  runID,
		queue:  make(chan work.CompletedEntry, backlog),
		logger: logger.With("run", runID),
	}
}

// Record queues entry for writing.
func (w *Writer) Record(entry work.CompletedEntry) error {
	select {
	case w.queue <- entry:
		return nil
	default:
		return fmt.Errorf("item %d: %w", entry.ID, ErrJournalBacklog)
	}
}

// Run writes queued completions until ctx is cancelled, then flushes what
// is still queued.
//
// ERROR HANDLING: a failed write is logged and skipped ("log and continue").
// The journal is an audit trail; losing a row must not stop the scheduler.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case entry := <-w.queue:
			w.write(ctx, entry)
		case <-ctx.Done():
			w.flush(context.WithoutCancel(ctx))
			return nil
		}
	}
}

func (w *Writer) flush(ctx context.Context) {
	for {
		select {
		case entry := <-w.queue:
			w.write(ctx, entry)
		default:
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, entry work.CompletedEntry) {
	err := w.store.RecordCompletion(ctx, Completion{
		RunID:        w.runID,
		ItemID:       entry.ID,
		Kind:         entry.Kind,
		Variant:      entry.Variant,
		Contributors: entry.Contributors,
		Tick:         entry.Tick,
	})
	if err != nil {
		w.failed.Add(1)
		w.logger.Error("journal write failed", "item", entry.ID, "error", err)
		return
	}
	w.written.Add(1)
}

// Written returns the number of completions written so far.
func (w *Writer) Written() uint64 {
	return w.written.Load()
}

// Failed returns the number of completions that could not be written.
func (w *Writer) Failed() uint64 {
	return w.failed.Load()
}
