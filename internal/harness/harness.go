// Package harness runs scheduler scenarios deterministically.
//
// A scenario is a YAML file naming workers, timed submissions, a tick
// count, and assertions. The harness runs the real scheduler and workers in
// lockstep mode, so every tick waits for the reports of its own dispatches
// and orders them by roster position. With a fixed seed the same scenario
// always produces the same trace, which makes traces usable as golden
// files.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/crunch/internal/catalog"
	"github.com/roach88/crunch/internal/scheduler"
	"github.com/roach88/crunch/internal/work"
)

// defaultSeed replaces a zero seed, which the scheduler would otherwise
// derive from the wall clock.
const defaultSeed = 1

// Option configures Run.
type Option func(*runner)

type runner struct {
	logger  *slog.Logger
	catalog *catalog.Catalog
}

// WithLogger sends scheduler logs to l. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) {
		r.logger = l
	}
}

// WithCatalog runs the scenario against c instead of the catalog the
// scenario names.
func WithCatalog(c *catalog.Catalog) Option {
	return func(r *runner) {
		r.catalog = c
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh scheduler. Execution flow:
//  1. Load the catalog and build a lockstep scheduler config
//  2. Before each tick, join the workers and submit the work due on it
//  3. Run the tick and append its events to the trace
//  4. Stop the workers and evaluate assertions against the trace and the
//     final snapshot
//
// An error is returned only when the scenario cannot run at all. Rejected
// submissions and failed assertions are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	r := &runner{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(r)
	}

	cat := r.catalog
	if cat == nil {
		var err error
		cat, err = loadCatalog(scenario.Catalog)
		if err != nil {
			return nil, err
		}
	}

	s := scheduler.New(schedulerConfig(scenario), cat, scheduler.WithLogger(r.logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.Wait()
	}()

	result := NewResult()
	for tick := 1; tick <= scenario.Ticks; tick++ {
		for _, w := range scenario.Workers {
			if due(w.AtTick, tick) {
				if err := s.AddWorker(workerSpec(w)); err != nil {
					result.AddError(fmt.Sprintf("tick %d: add worker %s: %v", tick, w.Name, err))
				}
			}
		}
		for i, sub := range scenario.Submit {
			if due(sub.AtTick, tick) {
				if err := s.SubmitWork(work.Kind(sub.Kind), sub.Variant); err != nil {
					result.AddError(fmt.Sprintf("tick %d: submit[%d] %s: %v", tick, i, sub.Kind, err))
				}
			}
		}
		result.AddTick(s.Tick(ctx), cat)
	}
	result.Final = s.Snapshot()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return c, nil
}

// schedulerConfig starts from the stock tunables with random spawning and
// breaks disabled, then applies the scenario's overrides.
func schedulerConfig(scenario *Scenario) scheduler.Config {
	cfg := scheduler.DefaultConfig()
	cfg.Lockstep = true
	cfg.Seed = scenario.Seed
	if cfg.Seed == 0 {
		cfg.Seed = defaultSeed
	}
	cfg.Spawn.Probability = 0
	cfg.Breaks.Probability = 0

	o := scenario.Config
	if o == nil {
		return cfg
	}
	if o.HistoryCapacity > 0 {
		cfg.HistoryCapacity = o.HistoryCapacity
	}
	if o.SpawnProbability != nil {
		cfg.Spawn.Probability = *o.SpawnProbability
	}
	if o.OpenCap > 0 {
		cfg.Spawn.OpenCap = o.OpenCap
	}
	if o.BreakProbability != nil {
		cfg.Breaks.Probability = *o.BreakProbability
	}
	if o.FocusThreshold != nil {
		cfg.Breaks.FocusThreshold = *o.FocusThreshold
	}
	return cfg
}

func workerSpec(w WorkerStep) scheduler.WorkerSpec {
	spec := scheduler.WorkerSpec{
		Name:            w.Name,
		Characteristics: work.NeutralCharacteristics(),
		Resources:       work.DefaultResources(),
	}
	if w.Characteristics != nil {
		spec.Characteristics = *w.Characteristics
	}
	if w.Resources != nil {
		spec.Resources = *w.Resources
	}
	return spec
}

// due reports whether a step scheduled at atTick runs before tick. Zero
// means the first tick.
func due(atTick, tick int) bool {
	if atTick == 0 {
		atTick = 1
	}
	return atTick == tick
}
