// Package worker runs one goroutine per worker. A worker owns its resources
// exclusively: they change only while it processes a command from its
// mailbox, and the scheduler learns about them only through reports.
//
// Thread-safety model:
//   - Dispatch(), ApplyBuff(): safe from any goroutine, never block
//   - Run(): must be called from exactly one goroutine
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/crunch/internal/work"
)

// DefaultMailboxCapacity bounds every worker mailbox unless configured.
const DefaultMailboxCapacity = 10

// ErrMailboxFull is returned by Dispatch and ApplyBuff when the worker has
// not yet drained earlier commands.
var ErrMailboxFull = errors.New("worker mailbox full")

// Submitter accepts unsolicited work. The scheduler's submission inbox
// implements it; Submit must not block.
type Submitter interface {
	Submit(sub work.Submission) error
}

// BreakPolicy controls spontaneous break emission. A worker whose focus is
// below FocusThreshold emits breaks with Probability per dispatch.
type BreakPolicy struct {
	FocusThreshold float64
	Probability    float64
}

// DefaultBreakPolicy emits a break on 1% of dispatches below 30 focus.
func DefaultBreakPolicy() BreakPolicy {
	return BreakPolicy{FocusThreshold: 30, Probability: 0.01}
}

// Config describes one worker.
type Config struct {
	Name            string
	Characteristics work.Characteristics
	Resources       work.Resources
	MailboxCapacity int
	Breaks          BreakPolicy
}

// command is either a dispatch or a buff.
type command struct {
	dispatch *work.Dispatch
	buff     *work.Buff
}

// Worker processes dispatched work and buffs in mailbox order.
type Worker struct {
	name      string
	traits    work.Characteristics
	res       work.Resources
	processed uint64
	breaks    BreakPolicy

	mailbox chan command
	reports chan<- work.Report
	submit  Submitter
	rng     work.Rand
	logger  *slog.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the worker's logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = l
	}
}

// WithSubmitter sets where spontaneous breaks are sent. Without one, break
// emission is disabled.
func WithSubmitter(s Submitter) Option {
	return func(w *Worker) {
		w.submit = s
	}
}

// New creates a worker that reports to reports. rng must not be shared with
// any other goroutine.
func New(cfg Config, reports chan<- work.Report, rng work.Rand, opts ...Option) *Worker {
	capacity := cfg.MailboxCapacity
	if capacity <= 0 {
		capacity = DefaultMailboxCapacity
	}

	w := &Worker{
		name:    cfg.Name,
		traits:  cfg.Characteristics,
		res:     cfg.Resources,
		breaks:  cfg.Breaks,
		mailbox: make(chan command, capacity),
		reports: reports,
		rng:     rng,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("worker", w.name)
	return w
}

// Name returns the worker's roster name.
func (w *Worker) Name() string {
	return w.name
}

// Pending returns the number of commands waiting in the mailbox.
func (w *Worker) Pending() int {
	return len(w.mailbox)
}

// Dispatch queues one tick of work on an item.
func (w *Worker) Dispatch(d work.Dispatch) error {
	return w.deliver(command{dispatch: &d})
}

// ApplyBuff queues a buff. Buffs and dispatches are applied in the order
// they were delivered.
func (w *Worker) ApplyBuff(b work.Buff) error {
	return w.deliver(command{buff: &b})
}

func (w *Worker) deliver(cmd command) error {
	select {
	case w.mailbox <- cmd:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrMailboxFull, w.name)
	}
}

// Run processes commands until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Debug("worker started", "mailbox", cap(w.mailbox))
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("worker stopped", "processed", w.processed)
			return nil
		case cmd := <-w.mailbox:
			switch {
			case cmd.dispatch != nil:
				if err := w.handleDispatch(ctx, *cmd.dispatch); err != nil {
					return nil
				}
			case cmd.buff != nil:
				if err := w.handleBuff(ctx, *cmd.buff); err != nil {
					return nil
				}
			}
		}
	}
}

// handleDispatch performs one tick of work and reports it. The only error
// is ctx cancellation while the report channel is full.
func (w *Worker) handleDispatch(ctx context.Context, d work.Dispatch) error {
	w.maybeTakeBreak()

	delta := d.Rate * work.Multiplier(d.Weights, w.traits, w.res)
	w.res.Energy -= delta
	w.res.Focus -= 2 * delta
	w.processed++

	return w.send(ctx, work.Report{
		Item:        d.Item,
		Worker:      w.name,
		EffortDelta: delta,
		State:       w.state(),
	})
}

// handleBuff applies a buff and publishes the new resources in a telemetry
// report.
func (w *Worker) handleBuff(ctx context.Context, b work.Buff) error {
	w.applyBuff(b)
	return w.send(ctx, work.Report{Worker: w.name, State: w.state()})
}

func (w *Worker) send(ctx context.Context, r work.Report) error {
	select {
	case w.reports <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// maybeTakeBreak emits one or two breaks when focus is low.
func (w *Worker) maybeTakeBreak() {
	if w.submit == nil || w.res.Focus >= w.breaks.FocusThreshold {
		return
	}
	if w.rng.Float64() >= w.breaks.Probability {
		return
	}

	n := 1 + w.rng.IntN(2)
	for range n {
		sub := work.Submission{Kind: work.KindShortBreak, Variant: work.VariantStandard, Source: w.name}
		if err := w.submit.Submit(sub); err != nil {
			w.logger.Warn("break submission rejected", "error", err)
			continue
		}
		w.logger.Debug("break requested", "focus", w.res.Focus)
	}
}

func (w *Worker) applyBuff(b work.Buff) {
	w.res = b.ApplyTo(w.res)
	w.logger.Debug("buff applied", "buff", b.ID, "energy", w.res.Energy, "focus", w.res.Focus)
}

func (w *Worker) state() work.WorkerState {
	return work.WorkerState{
		Name:            w.name,
		Characteristics: w.traits,
		Resources:       w.res,
		Processed:       w.processed,
	}
}
