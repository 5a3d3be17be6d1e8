package scheduler

import (
	"time"

	"github.com/roach88/crunch/internal/work"
	"github.com/roach88/crunch/internal/worker"
)

// EntryPoint is one outcome of the random spawn draw.
type EntryPoint struct {
	Kind    work.Kind
	Variant string
	Weight  float64
}

// SpawnPolicy controls random injection of new work.
type SpawnPolicy struct {
	// Probability is the chance per tick of spawning one item.
	Probability float64
	// OpenCap suppresses spawning while this many items are open.
	OpenCap int
	// Entries is the weighted distribution spawned items are drawn from.
	Entries []EntryPoint
}

// Config holds the scheduler's tunables.
type Config struct {
	// Interval is the wall-clock time between ticks in Run.
	Interval time.Duration
	// Seed seeds the default random sources. Zero means time-based.
	Seed uint64
	// HistoryCapacity bounds the completion history.
	HistoryCapacity int
	// QueueCapacity bounds the submission, join, and report queues and
	// every worker mailbox.
	QueueCapacity int
	Spawn         SpawnPolicy
	Breaks        worker.BreakPolicy
	// Lockstep makes each tick wait for the reports of its own dispatches
	// and orders reports and worker submissions by roster position.
	Lockstep bool
}

// DefaultEntries spawns CreateChange, one in five of them urgent.
func DefaultEntries() []EntryPoint {
	return []EntryPoint{
		{Kind: work.KindCreateChange, Variant: work.VariantStandard, Weight: 80},
		{Kind: work.KindCreateChange, Variant: work.VariantUrgent, Weight: 20},
	}
}

// DefaultConfig returns the stock tunables: ten ticks per second, a 1%
// spawn chance under ten open items, and five history entries.
func DefaultConfig() Config {
	return Config{
		Interval:        100 * time.Millisecond,
		HistoryCapacity: 5,
		QueueCapacity:   worker.DefaultMailboxCapacity,
		Spawn: SpawnPolicy{
			Probability: 0.01,
			OpenCap:     10,
			Entries:     DefaultEntries(),
		},
		Breaks: worker.DefaultBreakPolicy(),
	}
}

// WorkerSpec describes a worker joining the roster.
type WorkerSpec struct {
	Name            string
	Characteristics work.Characteristics
	Resources       work.Resources
}
