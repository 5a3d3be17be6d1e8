package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/crunch/internal/work"
)

const (
	defaultTickRate         = 10.0
	defaultHistoryCapacity  = 5
	defaultMailboxCapacity  = 10
	defaultSpawnProbability = 0.01
	defaultOpenCap          = 10
	defaultFocusThreshold   = 30.0
	defaultBreakProbability = 0.01
)

// Defaults returns the documented configuration defaults.
//
// Defaults:
// - tick_rate: 10 ticks per second
// - seed: 0 (time-based)
// - history_capacity: 5
// - mailbox_capacity: 10
// - spawn.probability: 0.01, spawn.open_cap: 10
// - spawn.entries: CreateChange standard 80, CreateChange urgent 20
// - breaks.focus_threshold: 30, breaks.probability: 0.01
// - workers: Okko (rested) and Anton (energy 50, focus 80, stress 10),
//   both with random characteristics
func Defaults() Config {
	return Config{
		TickRate:        defaultTickRate,
		HistoryCapacity: defaultHistoryCapacity,
		MailboxCapacity: defaultMailboxCapacity,
		Spawn: SpawnConfig{
			Probability: ptr(defaultSpawnProbability),
			OpenCap:     defaultOpenCap,
			Entries:     defaultEntries(),
		},
		Breaks: BreaksConfig{
			FocusThreshold: ptr(defaultFocusThreshold),
			Probability:    ptr(defaultBreakProbability),
		},
		Workers: defaultWorkers(),
	}
}

func defaultEntries() []EntryConfig {
	return []EntryConfig{
		{Kind: string(work.KindCreateChange), Variant: work.VariantStandard, Weight: 80},
		{Kind: string(work.KindCreateChange), Variant: work.VariantUrgent, Weight: 20},
	}
}

func defaultWorkers() []WorkerConfig {
	return []WorkerConfig{
		{Name: "Okko"},
		{Name: "Anton", Resources: &work.Resources{Energy: 50, Focus: 80, Stress: 10}},
	}
}

// ApplyDefaults fills missing or invalid values with documented defaults.
// A nil Workers list gets the default roster; an explicit empty list
// starts with no workers.
func ApplyDefaults(cfg Config, warn func(string)) Config {
	defaults := Defaults()

	cfg.TickRate = normalizePositiveFloat(cfg.TickRate, defaults.TickRate, "tick_rate", warn)
	cfg.HistoryCapacity = normalizePositiveInt(cfg.HistoryCapacity, defaults.HistoryCapacity, "history_capacity", warn)
	cfg.MailboxCapacity = normalizePositiveInt(cfg.MailboxCapacity, defaults.MailboxCapacity, "mailbox_capacity", warn)

	cfg.Spawn.Probability = normalizeProbability(cfg.Spawn.Probability, defaults.Spawn.Probability, "spawn.probability", warn)
	cfg.Spawn.OpenCap = normalizePositiveInt(cfg.Spawn.OpenCap, defaults.Spawn.OpenCap, "spawn.open_cap", warn)
	cfg.Spawn.Entries = normalizeEntries(cfg.Spawn.Entries, "spawn.entries", warn)

	cfg.Breaks.Probability = normalizeProbability(cfg.Breaks.Probability, defaults.Breaks.Probability, "breaks.probability", warn)
	if cfg.Breaks.FocusThreshold == nil {
		cfg.Breaks.FocusThreshold = defaults.Breaks.FocusThreshold
	}

	if cfg.Workers == nil {
		cfg.Workers = defaults.Workers
	}
	for i := range cfg.Workers {
		cfg.Workers[i].Name = work.NormalizeName(cfg.Workers[i].Name)
	}

	cfg.Catalog = strings.TrimSpace(cfg.Catalog)
	cfg.Journal = strings.TrimSpace(cfg.Journal)
	cfg.Inbox = strings.TrimSpace(cfg.Inbox)
	return cfg
}

// normalizePositiveInt defaults invalid values.
func normalizePositiveInt(value int, fallback int, key string, warn func(string)) int {
	if value <= 0 {
		if value < 0 {
			emitWarning(warn, "invalid "+key+"; using default")
		}
		return fallback
	}
	return value
}

func normalizePositiveFloat(value float64, fallback float64, key string, warn func(string)) float64 {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		if value != 0 {
			emitWarning(warn, "invalid "+key+"; using default")
		}
		return fallback
	}
	return value
}

// normalizeProbability keeps values in [0, 1] and defaults the rest.
func normalizeProbability(value *float64, fallback *float64, key string, warn func(string)) *float64 {
	if value == nil {
		return ptr(*fallback)
	}
	if math.IsNaN(*value) || *value < 0 || *value > 1 {
		emitWarning(warn, fmt.Sprintf("invalid %s %v; using default", key, *value))
		return ptr(*fallback)
	}
	return value
}

// normalizeEntries fills missing variants. Weights are left for Validate.
func normalizeEntries(entries []EntryConfig, key string, warn func(string)) []EntryConfig {
	if entries == nil {
		return defaultEntries()
	}
	normalized := make([]EntryConfig, 0, len(entries))
	for _, e := range entries {
		e.Kind = strings.TrimSpace(e.Kind)
		e.Variant = strings.TrimSpace(e.Variant)
		if e.Variant == "" {
			e.Variant = work.VariantStandard
		}
		normalized = append(normalized, e)
	}
	if len(normalized) == 0 {
		emitWarning(warn, "empty "+key+"; using defaults")
		return defaultEntries()
	}
	return normalized
}

func emitWarning(warn func(string), message string) {
	if warn != nil {
		warn(message)
	}
}
