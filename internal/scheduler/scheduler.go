package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/crunch/internal/catalog"
	"github.com/roach88/crunch/internal/work"
	"github.com/roach88/crunch/internal/worker"
)

// Recorder receives every completion. Record must not block; a recorder
// that cannot keep up returns an error and the entry is dropped.
type Recorder interface {
	Record(entry work.CompletedEntry) error
}

// Scheduler assigns open work to workers once per tick.
type Scheduler struct {
	cfg     Config
	catalog *catalog.Catalog
	logger  *slog.Logger

	rng        work.Rand
	workerRand func(name string) work.Rand
	seq        *work.Sequence
	recorder   Recorder
	observer   func(Snapshot)

	// Owned by the tick goroutine.
	registry map[work.ItemID]*work.Item
	history  []work.CompletedEntry
	roster   []*member
	index    map[string]int
	pending  []WorkerSpec
	tick     uint64
	stats    Stats
	// buffed counts buffs delivered this tick whose telemetry lockstep
	// mode still has to collect.
	buffed int

	submissions chan work.Submission
	joins       chan WorkerSpec
	reports     chan work.Report

	workers  sync.WaitGroup
	snapshot atomic.Pointer[Snapshot]
}

// member is one roster entry. state is the last telemetry the worker
// reported, seeded from its spec.
type member struct {
	w     *worker.Worker
	state work.WorkerState
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger. Workers inherit it.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithRand sets the source for spawn draws.
func WithRand(r work.Rand) Option {
	return func(s *Scheduler) {
		s.rng = r
	}
}

// WithWorkerRand sets the factory for per-worker random sources. Each
// returned source is owned by one worker goroutine.
func WithWorkerRand(f func(name string) work.Rand) Option {
	return func(s *Scheduler) {
		s.workerRand = f
	}
}

// WithRecorder forwards completions to r.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

// WithObserver calls f with every published snapshot, on the tick goroutine.
func WithObserver(f func(Snapshot)) Option {
	return func(s *Scheduler) {
		s.observer = f
	}
}

// WithWorkers seeds the roster. The workers start on the first tick.
func WithWorkers(specs ...WorkerSpec) Option {
	return func(s *Scheduler) {
		s.pending = append(s.pending, specs...)
	}
}

// WithSequence sets the item ID sequence.
func WithSequence(seq *work.Sequence) Option {
	return func(s *Scheduler) {
		s.seq = seq
	}
}

// New creates a scheduler. Zero-valued capacities in cfg fall back to
// DefaultConfig.
func New(cfg Config, c *catalog.Catalog, opts ...Option) *Scheduler {
	def := DefaultConfig()
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = def.QueueCapacity
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = def.HistoryCapacity
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}

	s := &Scheduler{
		cfg:         cfg,
		catalog:     c,
		logger:      slog.Default(),
		seq:         work.NewSequence(),
		registry:    make(map[work.ItemID]*work.Item),
		history:     make([]work.CompletedEntry, 0, cfg.HistoryCapacity+1),
		index:       make(map[string]int),
		submissions: make(chan work.Submission, cfg.QueueCapacity),
		joins:       make(chan WorkerSpec, cfg.QueueCapacity),
		reports:     make(chan work.Report, cfg.QueueCapacity),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.rng == nil {
		s.rng = work.NewRand(cfg.Seed)
	}
	if s.workerRand == nil {
		base := work.NewRand(cfg.Seed ^ 0x5bd1e995)
		var n uint64
		s.workerRand = func(string) work.Rand {
			n++
			return work.Derive(base, n)
		}
	}

	s.snapshot.Store(&Snapshot{})
	return s
}

// Submit queues a work submission without blocking.
func (s *Scheduler) Submit(sub work.Submission) error {
	if !sub.Kind.Valid() {
		_, err := work.ParseKind(string(sub.Kind))
		return fmt.Errorf("submit: %w", err)
	}
	select {
	case s.submissions <- sub:
		return nil
	default:
		return fmt.Errorf("submit %s: %w", sub.Kind, ErrInboxFull)
	}
}

// SubmitWork queues a new item of kind on behalf of an external caller.
func (s *Scheduler) SubmitWork(kind work.Kind, variant string) error {
	if variant == "" {
		variant = work.VariantStandard
	}
	return s.Submit(work.Submission{Kind: kind, Variant: variant, Source: SourceExternal})
}

// AddWorker queues a worker to join the roster on the next tick. The name
// is NFC-normalized; a name already on the roster is logged and ignored
// when the join is drained.
func (s *Scheduler) AddWorker(spec WorkerSpec) error {
	spec.Name = work.NormalizeName(spec.Name)
	if spec.Name == "" {
		return ErrEmptyWorkerName
	}
	select {
	case s.joins <- spec:
		return nil
	default:
		return fmt.Errorf("add worker %s: %w", spec.Name, ErrInboxFull)
	}
}

// Snapshot returns the state published by the most recent tick.
func (s *Scheduler) Snapshot() Snapshot {
	return s.snapshot.Load().clone()
}

// Run ticks every cfg.Interval until ctx is cancelled, then waits for the
// worker goroutines to exit.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler starting",
		"interval", s.cfg.Interval,
		"workers", len(s.pending),
		"lockstep", s.cfg.Lockstep)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Wait()
			s.logger.Info("scheduler stopped", "ticks", s.tick, "completed", s.stats.Completed)
			return nil
		case <-ticker.C:
			// An observer may have cancelled ctx during the previous tick.
			if ctx.Err() != nil {
				continue
			}
			s.Tick(ctx)
		}
	}
}

// Wait blocks until every worker goroutine has exited. Workers exit when
// the context of the tick that started them is cancelled.
func (s *Scheduler) Wait() {
	s.workers.Wait()
}
