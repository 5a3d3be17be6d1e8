package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crunch/internal/journal"
	"github.com/roach88/crunch/internal/work"
)

// seedJournal records two runs; "second" is the most recent.
func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crunch.db")
	store, err := journal.Open(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.StartRun(ctx, journal.Run{ID: "first", StartedAt: start, Seed: 1, Catalog: "default"}))
	require.NoError(t, store.StartRun(ctx, journal.Run{ID: "second", StartedAt: start.Add(time.Hour), Seed: 2, Catalog: "team.cue"}))

	for i, tick := range []uint64{60, 125, 132} {
		require.NoError(t, store.RecordCompletion(ctx, journal.Completion{
			RunID:        "second",
			ItemID:       work.ItemID(i + 1),
			Kind:         work.KindMergeChange,
			Variant:      work.VariantStandard,
			Contributors: []string{"okko"},
			Tick:         tick,
		}))
	}
	return path
}

func executeHistory(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHistoryListsRuns(t *testing.T) {
	path := seedJournal(t)

	out, err := executeHistory(t, "text", "--journal", path)
	require.NoError(t, err)
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "second")
	assert.Contains(t, out, "team.cue")
	assert.Less(t, bytes.Index([]byte(out), []byte("second")), bytes.Index([]byte(out), []byte("first")),
		"most recent run first")
}

func TestHistoryLatestRun(t *testing.T) {
	path := seedJournal(t)

	out, err := executeHistory(t, "json", "--journal", path, "--run", "latest", "--limit", "2")
	require.NoError(t, err)

	var response struct {
		Status string     `json:"status"`
		RunID  string     `json:"run_id"`
		Data   RunHistory `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "second", response.RunID)
	assert.Equal(t, 3, response.Data.Run.Completed)
	require.Len(t, response.Data.Completions, 2)
	assert.Equal(t, uint64(132), response.Data.Completions[0].Tick)
	assert.Equal(t, uint64(125), response.Data.Completions[1].Tick)
}

func TestHistoryRunText(t *testing.T) {
	path := seedJournal(t)

	out, err := executeHistory(t, "text", "--journal", path, "--run", "second")
	require.NoError(t, err)
	assert.Contains(t, out, "Run second (seed 2, 3 completed)")
	assert.Contains(t, out, "[tick 60] #1 MergeChange (standard) by okko")
}

func TestHistoryEmptyRun(t *testing.T) {
	path := seedJournal(t)

	out, err := executeHistory(t, "text", "--journal", path, "--run", "first")
	require.NoError(t, err)
	assert.Contains(t, out, "No completions recorded.")
}

func TestHistoryUnknownRun(t *testing.T) {
	path := seedJournal(t)

	_, err := executeHistory(t, "text", "--journal", path, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: nope")
}

func TestHistoryMissingJournal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.db")

	_, err := executeHistory(t, "text", "--journal", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NoFileExists(t, missing, "history must not create a journal")
}

func TestHistoryRequiresJournalFlag(t *testing.T) {
	_, err := executeHistory(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestFindRun(t *testing.T) {
	runs := []journal.RunSummary{
		{Run: journal.Run{ID: "b"}},
		{Run: journal.Run{ID: "a"}},
	}

	r, ok := findRun(runs, latestRun)
	require.True(t, ok)
	assert.Equal(t, "b", r.ID)

	r, ok = findRun(runs, "a")
	require.True(t, ok)
	assert.Equal(t, "a", r.ID)

	_, ok = findRun(nil, latestRun)
	assert.False(t, ok)
}
