// Package config loads the crunch configuration file.
package config

import (
	"time"

	"github.com/roach88/crunch/internal/scheduler"
	"github.com/roach88/crunch/internal/work"
	"github.com/roach88/crunch/internal/worker"
)

// Config is the on-disk configuration. Zero values are filled by
// ApplyDefaults; probabilities are pointers because 0 is meaningful.
type Config struct {
	// TickRate is ticks per second.
	TickRate        float64        `yaml:"tick_rate"`
	Seed            uint64         `yaml:"seed"`
	HistoryCapacity int            `yaml:"history_capacity"`
	MailboxCapacity int            `yaml:"mailbox_capacity"`
	Spawn           SpawnConfig    `yaml:"spawn"`
	Breaks          BreaksConfig   `yaml:"breaks"`
	Catalog         string         `yaml:"catalog"`
	Journal         string         `yaml:"journal"`
	Inbox           string         `yaml:"inbox"`
	Workers         []WorkerConfig `yaml:"workers"`
}

// SpawnConfig controls random injection of entry-point work.
type SpawnConfig struct {
	Probability *float64      `yaml:"probability"`
	OpenCap     int           `yaml:"open_cap"`
	Entries     []EntryConfig `yaml:"entries"`
}

// EntryConfig is one weighted entry point.
type EntryConfig struct {
	Kind    string  `yaml:"kind"`
	Variant string  `yaml:"variant"`
	Weight  float64 `yaml:"weight"`
}

// BreaksConfig controls spontaneous break emission.
type BreaksConfig struct {
	FocusThreshold *float64 `yaml:"focus_threshold"`
	Probability    *float64 `yaml:"probability"`
}

// WorkerConfig describes one roster entry. Omitted characteristics are
// drawn at random; omitted resources are the rested defaults.
type WorkerConfig struct {
	Name            string                `yaml:"name"`
	Characteristics *work.Characteristics `yaml:"characteristics"`
	Resources       *work.Resources       `yaml:"resources"`
}

// Interval converts TickRate to the time between ticks.
func (c Config) Interval() time.Duration {
	if c.TickRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.TickRate)
}

// Scheduler returns the scheduler tunables. cfg must have had ApplyDefaults
// applied.
func (c Config) Scheduler() scheduler.Config {
	entries := make([]scheduler.EntryPoint, 0, len(c.Spawn.Entries))
	for _, e := range c.Spawn.Entries {
		entries = append(entries, scheduler.EntryPoint{
			Kind:    work.Kind(e.Kind),
			Variant: e.Variant,
			Weight:  e.Weight,
		})
	}
	return scheduler.Config{
		Interval:        c.Interval(),
		Seed:            c.Seed,
		HistoryCapacity: c.HistoryCapacity,
		QueueCapacity:   c.MailboxCapacity,
		Spawn: scheduler.SpawnPolicy{
			Probability: deref(c.Spawn.Probability),
			OpenCap:     c.Spawn.OpenCap,
			Entries:     entries,
		},
		Breaks: worker.BreakPolicy{
			FocusThreshold: deref(c.Breaks.FocusThreshold),
			Probability:    deref(c.Breaks.Probability),
		},
	}
}

// Roster returns the worker specs, drawing omitted characteristics from r.
func (c Config) Roster(r work.Rand) []scheduler.WorkerSpec {
	specs := make([]scheduler.WorkerSpec, 0, len(c.Workers))
	for _, w := range c.Workers {
		spec := scheduler.WorkerSpec{
			Name:      w.Name,
			Resources: work.DefaultResources(),
		}
		if w.Characteristics != nil {
			spec.Characteristics = *w.Characteristics
		} else {
			spec.Characteristics = work.RandomCharacteristics(r)
		}
		if w.Resources != nil {
			spec.Resources = *w.Resources
		}
		specs = append(specs, spec)
	}
	return specs
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func ptr(v float64) *float64 {
	return &v
}
