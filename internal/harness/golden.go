package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/crunch/internal/work"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Seed         uint64       `json:"seed"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because work.MarshalCanonical only handles maps, slices, and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
			"tick": event.Tick,
		}
		if event.Worker != "" {
			eventMap["worker"] = event.Worker
		}
		if event.ID != 0 {
			eventMap["id"] = event.ID
		}
		if event.Kind != "" {
			eventMap["kind"] = event.Kind
		}
		if event.Variant != "" {
			eventMap["variant"] = event.Variant
		}
		if event.Source != "" {
			eventMap["source"] = event.Source
		}
		if event.Type == EventComplete {
			contributors := event.Contributors
			if contributors == nil {
				contributors = []string{}
			}
			eventMap["contributors"] = contributors
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"seed":          s.Seed,
		"trace":         traceList,
	}
}

// MarshalTrace renders a result's trace as canonical JSON, the format
// golden files are stored in.
func MarshalTrace(scenario *Scenario, result *Result) ([]byte, error) {
	seed := scenario.Seed
	if seed == 0 {
		seed = defaultSeed
	}
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Seed:         seed,
		Trace:        result.Trace,
	}
	return work.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}

	traceJSON, err := MarshalTrace(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result, nil
}
