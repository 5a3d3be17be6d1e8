package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioGoldens runs every scenario under testdata/scenarios and
// compares its trace with testdata/golden/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -run TestScenarioGoldens -update
func TestScenarioGoldens(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/history_eviction.yaml")
	require.NoError(t, err)

	var outputs []string
	for i := 0; i < 3; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		data, err := MarshalTrace(scenario, result)
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}

	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}

func TestMarshalTrace_Format(t *testing.T) {
	result, err := Run(oneMerge())
	require.NoError(t, err)

	data, err := MarshalTrace(oneMerge(), result)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, `{"scenario_name":"one_merge","seed":1,"trace":[`), out)
	assert.Contains(t, out, `{"seq":1,"tick":1,"type":"join","worker":"okko"}`)
	assert.Contains(t, out, `{"contributors":["okko"],"id":1,"kind":"MergeChange","seq":3,"tick":6,"type":"complete","variant":"standard"}`)
	assert.NotContains(t, out, " ")
	assert.NotContains(t, out, "\n")
}
