package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/crunch/internal/work"
)

// Scenario defines a deterministic scheduler run.
// A scenario joins workers, submits work at fixed ticks, runs the scheduler
// in lockstep for a fixed number of ticks, and asserts on the resulting
// trace and final snapshot.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed seeds spawn and break randomness. Zero means 1 so that runs
	// replay identically.
	Seed uint64 `yaml:"seed,omitempty"`

	// Ticks is how many scheduler ticks to run.
	Ticks int `yaml:"ticks"`

	// Catalog is an optional CUE catalog path, relative to the scenario
	// file. The built-in catalog is used when empty.
	Catalog string `yaml:"catalog,omitempty"`

	// Config overrides scheduler tunables. Random spawning and breaks are
	// off unless enabled here.
	Config *Overrides `yaml:"config,omitempty"`

	// Workers join the roster on their tick.
	Workers []WorkerStep `yaml:"workers"`

	// Submit injects work before the given tick runs.
	Submit []SubmitStep `yaml:"submit,omitempty"`

	// Assertions validate the trace and the final snapshot.
	// Supported types: completed_count, open_count, history_order,
	// trace_order, contributors
	Assertions []Assertion `yaml:"assertions"`
}

// Overrides adjusts the scheduler configuration for one scenario.
type Overrides struct {
	HistoryCapacity  int      `yaml:"history_capacity,omitempty"`
	SpawnProbability *float64 `yaml:"spawn_probability,omitempty"`
	OpenCap          int      `yaml:"open_cap,omitempty"`
	BreakProbability *float64 `yaml:"break_probability,omitempty"`
	FocusThreshold   *float64 `yaml:"focus_threshold,omitempty"`
}

// WorkerStep adds one worker. Omitted characteristics are neutral (all
// 100) and omitted resources are rested.
type WorkerStep struct {
	Name            string                `yaml:"name"`
	Characteristics *work.Characteristics `yaml:"characteristics,omitempty"`
	Resources       *work.Resources       `yaml:"resources,omitempty"`
	// AtTick is the tick the worker joins on. Zero means the first tick.
	AtTick int `yaml:"at_tick,omitempty"`
}

// SubmitStep submits one item from outside the scheduler.
type SubmitStep struct {
	Kind    string `yaml:"kind"`
	Variant string `yaml:"variant,omitempty"`
	// AtTick is the tick the submission is drained on. Zero means the
	// first tick.
	AtTick int `yaml:"at_tick,omitempty"`
}

// Assertion validates the trace or the final snapshot.
type Assertion struct {
	// Type specifies the assertion type:
	// - "completed_count": number of completions in the trace
	// - "open_count": number of open items at the end
	// - "history_order": history IDs at the end, newest first
	// - "trace_order": completed kinds appear in this order
	// - "contributors": contributors of one completed item
	Type string `yaml:"type"`

	// Count is the expected number (completed_count, open_count).
	Count int `yaml:"count,omitempty"`

	// IDs is the expected history, newest first (history_order).
	IDs []uint64 `yaml:"ids,omitempty"`

	// Kinds is the expected completion order (trace_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Item is the completed item ID (contributors).
	Item uint64 `yaml:"item,omitempty"`

	// Workers are the expected contributors in first-contribution order
	// (contributors).
	Workers []string `yaml:"workers,omitempty"`
}

// Assertion type constants.
const (
	AssertCompletedCount = "completed_count"
	AssertOpenCount      = "open_count"
	AssertHistoryOrder   = "history_order"
	AssertTraceOrder     = "trace_order"
	AssertContributors   = "contributors"
)

// LoadScenario reads and parses a scenario YAML file. A relative catalog
// path is resolved against the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}
	if scenario.Catalog != "" {
		if _, err := os.Stat(scenario.Catalog); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: catalog file not found: %s", scenario.Catalog)
		}
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Ticks <= 0 {
		return fmt.Errorf("ticks must be positive")
	}

	if len(s.Workers) == 0 {
		return fmt.Errorf("workers list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if o := s.Config; o != nil {
		if o.HistoryCapacity < 0 {
			return fmt.Errorf("config.history_capacity must not be negative")
		}
		if o.OpenCap < 0 {
			return fmt.Errorf("config.open_cap must not be negative")
		}
		if !probability(o.SpawnProbability) {
			return fmt.Errorf("config.spawn_probability must be within [0, 1]")
		}
		if !probability(o.BreakProbability) {
			return fmt.Errorf("config.break_probability must be within [0, 1]")
		}
	}

	seen := make(map[string]bool, len(s.Workers))
	for i, w := range s.Workers {
		if w.Name == "" {
			return fmt.Errorf("workers[%d]: name is required", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("workers[%d]: duplicate name %q", i, w.Name)
		}
		seen[w.Name] = true
		if w.AtTick < 0 || w.AtTick > s.Ticks {
			return fmt.Errorf("workers[%d]: at_tick %d outside 1..%d", i, w.AtTick, s.Ticks)
		}
	}

	for i, step := range s.Submit {
		if _, err := work.ParseKind(step.Kind); err != nil {
			return fmt.Errorf("submit[%d]: %w", i, err)
		}
		if step.AtTick < 0 || step.AtTick > s.Ticks {
			return fmt.Errorf("submit[%d]: at_tick %d outside 1..%d", i, step.AtTick, s.Ticks)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCompletedCount, AssertOpenCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must not be negative", index)
		}
	case AssertHistoryOrder:
		// An empty list asserts an empty history.
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
		for _, k := range a.Kinds {
			if _, err := work.ParseKind(k); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertContributors:
		if a.Item == 0 {
			return fmt.Errorf("assertions[%d]: item is required for contributors", index)
		}
		if len(a.Workers) == 0 {
			return fmt.Errorf("assertions[%d]: workers list is required for contributors", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}

	return nil
}

func probability(p *float64) bool {
	return p == nil || (*p >= 0 && *p <= 1)
}
