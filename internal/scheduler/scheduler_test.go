package scheduler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crunch/internal/catalog"
	"github.com/roach88/crunch/internal/testutil"
	"github.com/roach88/crunch/internal/work"
	"github.com/roach88/crunch/internal/worker"
	"github.com/roach88/crunch/internal/workflow"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return c
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// lockstepConfig disables random spawning and waits for every report.
func lockstepConfig() Config {
	cfg := DefaultConfig()
	cfg.Lockstep = true
	cfg.Spawn.Probability = 0
	return cfg
}

func newTestScheduler(t *testing.T, cfg Config, opts ...Option) *Scheduler {
	t.Helper()
	base := []Option{
		WithLogger(quietLogger()),
		WithRand(testutil.Never()),
		WithWorkerRand(func(string) work.Rand { return testutil.Never() }),
	}
	return New(cfg, testCatalog(t), append(base, opts...)...)
}

// tickCtx returns a context that outlives the test's ticks and stops the
// workers on cleanup.
func tickCtx(t *testing.T, s *Scheduler) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		s.Wait()
	})
	return ctx
}

func rigor50(name string) WorkerSpec {
	c := work.NeutralCharacteristics()
	c.Rigor = 50
	return WorkerSpec{Name: name, Characteristics: c, Resources: work.DefaultResources()}
}

// idle adds a roster member whose goroutine never runs, so its mailbox
// fills up.
func idle(s *Scheduler, name string, mailbox int) *worker.Worker {
	w := worker.New(worker.Config{Name: name, MailboxCapacity: mailbox}, s.reports, testutil.Never(),
		worker.WithLogger(quietLogger()))
	s.index[name] = len(s.roster)
	s.roster = append(s.roster, &member{w: w, state: work.WorkerState{Name: name}})
	return w
}

func TestScheduler_SingleWorkerCompletesCreateChange(t *testing.T) {
	s := newTestScheduler(t, lockstepConfig(), WithWorkers(rigor50("okko")))
	ctx := tickCtx(t, s)
	require.NoError(t, s.SubmitWork(work.KindCreateChange, work.VariantStandard))

	var done TickSummary
	for i := 0; i < 100; i++ {
		sum := s.Tick(ctx)
		if len(sum.Completed) > 0 {
			done = sum
			break
		}
	}

	// The multiplier starts at 1.75 and falls as energy and focus drain,
	// so 10 effort at 0.1 per tick takes 60 ticks instead of 58.
	assert.Equal(t, uint64(60), done.Tick)
	require.Len(t, done.Completed, 1)
	assert.Equal(t, work.KindCreateChange, done.Completed[0].Kind)
	assert.Equal(t, []string{"okko"}, done.Completed[0].Contributors)

	snap := s.Snapshot()
	require.Len(t, snap.OpenItems, 1)
	assert.Equal(t, work.KindReviewChange, snap.OpenItems[0].Kind)
	assert.Zero(t, snap.OpenItems[0].Progress)
}

func TestScheduler_WorkflowChain(t *testing.T) {
	s := newTestScheduler(t, lockstepConfig(), WithWorkers(rigor50("okko")))
	ctx := tickCtx(t, s)
	require.NoError(t, s.SubmitWork(work.KindCreateChange, work.VariantUrgent))

	var completedAt []uint64
	for i := 0; i < 200; i++ {
		for _, e := range s.Tick(ctx).Completed {
			completedAt = append(completedAt, e.Tick)
		}
	}

	assert.Equal(t, []uint64{60, 125, 132}, completedAt)

	snap := s.Snapshot()
	assert.Empty(t, snap.OpenItems, "MergeChange is terminal")
	require.Len(t, snap.History, 3)
	assert.Equal(t, work.KindMergeChange, snap.History[0].Kind)
	assert.Equal(t, work.KindReviewChange, snap.History[1].Kind)
	assert.Equal(t, work.KindCreateChange, snap.History[2].Kind)
	for _, e := range snap.History {
		assert.Equal(t, work.VariantUrgent, e.Variant)
	}
}

func TestScheduler_OneDispatchPerWorkerPerTick(t *testing.T) {
	s := newTestScheduler(t, lockstepConfig(), WithWorkers(rigor50("okko")))
	ctx := tickCtx(t, s)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.SubmitWork(work.KindCreateChange, work.VariantStandard))
	}

	sum := s.Tick(ctx)
	assert.Equal(t, 1, sum.Dispatched)
	assert.Equal(t, 1, sum.Reports)

	touched := 0
	for _, item := range s.Snapshot().OpenItems {
		if len(item.Contributors) > 0 {
			touched++
		}
	}
	assert.Equal(t, 1, touched)

	s.Tick(ctx)
	s.Tick(ctx)
	assert.Equal(t, uint64(3), s.Snapshot().Stats.Dispatched)
}

func TestScheduler_MoreWorkersThanItems(t *testing.T) {
	s := newTestScheduler(t, lockstepConfig(),
		WithWorkers(rigor50("a"), rigor50("b"), rigor50("c")))
	ctx := tickCtx(t, s)
	require.NoError(t, s.SubmitWork(work.KindCreateChange, ""))

	sum := s.Tick(ctx)
	assert.Equal(t, []string{"a", "b", "c"}, sum.Joined)
	assert.Equal(t, 1, sum.Dispatched)
	assert.Equal(t, []string{"a"}, s.Snapshot().OpenItems[0].Contributors)
}

func TestScheduler_DispatchOrder(t *testing.T) {
	s := newTestScheduler(t, lockstepConfig(),
		WithWorkers(rigor50("first"), rigor50("second"), rigor50("third")))
	ctx := tickCtx(t, s)

	require.NoError(t, s.SubmitWork(work.KindShortBreak, ""))
	require.NoError(t, s.SubmitWork(work.KindCreateChange, ""))
	require.NoError(t, s.SubmitWork(work.KindMergeChange, ""))

	s.Tick(ctx)

	byKind := map[work.Kind][]string{}
	for _, item := range s.Snapshot().OpenItems {
		byKind[item.Kind] = item.Contributors
	}
	assert.Equal(t, []string{"first"}, byKind[work.KindMergeChange])
	assert.Equal(t, []string{"second"}, byKind[work.KindCreateChange])
	assert.Equal(t, []string{"third"}, byKind[work.KindShortBreak])
}

func TestScheduler_ProgressMonotonicAndClamped(t *testing.T) {
	s := newTestScheduler(t, lockstepConfig(),
		WithWorkers(rigor50("a"), rigor50("b")))
	ctx := tickCtx(t, s)
	for i := 0; i < 4; i++ {
		require.NoError(t, s.SubmitWork(work.KindMergeChange, ""))
	}

	last := map[work.ItemID]float64{}
	for i := 0; i < 40; i++ {
		s.Tick(ctx)
		for _, item := range s.Snapshot().OpenItems {
			assert.GreaterOrEqual(t, item.Progress, 0.0)
			assert.LessOrEqual(t, item.Progress, 1.0)
			assert.GreaterOrEqual(t, item.Progress, last[item.ID], "item %d regressed", item.ID)
			last[item.ID] = item.Progress
		}
	}
	assert.Equal(t, uint64(4), s.Snapshot().Stats.Completed)
}

func TestScheduler_NegativeMultiplierRegressesToZero(t *testing.T) {
	// Good worker for one tick, then only a burnt-out worker is available.
	s := newTestScheduler(t, lockstepConfig(), WithWorkers(rigor50("good")))
	ctx := tickCtx(t, s)
	require.NoError(t, s.SubmitWork(work.KindCreateChange, ""))
	s.Tick(ctx)
	require.Greater(t, s.Snapshot().OpenItems[0].Progress, 0.0)

	// Occupy "good" with a higher-priority item and add the burnt worker.
	require.NoError(t, s.SubmitWork(work.KindMergeChange, ""))
	require.NoError(t, s.AddWorker(WorkerSpec{Name: "burnt", Resources: work.Resources{Stress: 100}}))

	for i := 0; i < 5; i++ {
		s.Tick(ctx)
	}

	var create OpenItem
	for _, item := range s.Snapshot().OpenItems {
		if item.Kind == work.KindCreateChange {
			create = item
		}
	}
	assert.Zero(t, create.Progress, "regression clamps at zero")
	assert.Equal(t, []string{"good", "burnt"}, create.Contributors)
}

func TestScheduler_HistoryCapacity(t *testing.T) {
	cfg := lockstepConfig()
	cfg.HistoryCapacity = 5

	var specs []WorkerSpec
	for _, name := range []string{"w1", "w2", "w3", "w4", "w5", "w6", "w7"} {
		specs = append(specs, rigor50(name))
	}
	s := newTestScheduler(t, cfg, WithWorkers(specs...))
	ctx := tickCtx(t, s)
	for i := 0; i < 7; i++ {
		require.NoError(t, s.SubmitWork(work.KindMergeChange, ""))
	}

	for i := 0; i < 20 && s.Snapshot().Stats.Completed < 7; i++ {
		s.Tick(ctx)
	}

	snap := s.Snapshot()
	require.Equal(t, uint64(7), snap.Stats.Completed)
	require.Len(t, snap.History, 5)
	var ids []work.ItemID
	for _, e := range snap.History {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []work.ItemID{7, 6, 5, 4, 3}, ids)
}

func TestPushFront(t *testing.T) {
	var h []work.CompletedEntry
	for id := work.ItemID(1); id <= 7; id++ {
		h = pushFront(h, work.CompletedEntry{ID: id}, 5)
		assert.LessOrEqual(t, len(h), 5)
	}

	var ids []work.ItemID
	for _, e := range h {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []work.ItemID{7, 6, 5, 4, 3}, ids)
}

func TestScheduler_StaleReportIgnored(t *testing.T) {
	s := newTestScheduler(t, DefaultConfig())
	ctx := tickCtx(t, s)

	s.reports <- work.Report{Item: 999, Worker: "ghost", EffortDelta: 1}
	sum := s.Tick(ctx)

	assert.Equal(t, 1, sum.Stale)
	assert.Equal(t, uint64(1), s.Snapshot().Stats.StaleReports)
	assert.Empty(t, s.Snapshot().History)
}

func TestScheduler_CompletionIsIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn.Probability = 0
	s := newTestScheduler(t, cfg)
	ctx := tickCtx(t, s)
	require.NoError(t, s.SubmitWork(work.KindMergeChange, ""))
	s.Tick(ctx)
	id := s.Snapshot().OpenItems[0].ID

	// Two reports for the same item land in one tick; the first finishes it.
	s.reports <- work.Report{Item: id, Worker: "a", EffortDelta: 5}
	s.reports <- work.Report{Item: id, Worker: "b", EffortDelta: 5}
	sum := s.Tick(ctx)

	require.Len(t, sum.Completed, 1)
	assert.Equal(t, []string{"a"}, sum.Completed[0].Contributors)
	assert.Equal(t, 1, sum.Stale)
	assert.Len(t, s.Snapshot().History, 1)
	assert.Empty(t, s.Snapshot().OpenItems, "MergeChange spawns nothing")
}

func TestScheduler_SubmitBackpressure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueCapacity = 2
	s := newTestScheduler(t, cfg)

	require.NoError(t, s.SubmitWork(work.KindCreateChange, ""))
	require.NoError(t, s.SubmitWork(work.KindCreateChange, ""))
	err := s.SubmitWork(work.KindCreateChange, "")
	assert.ErrorIs(t, err, ErrInboxFull)

	// Draining the inbox makes room again.
	s.Tick(tickCtx(t, s))
	assert.NoError(t, s.SubmitWork(work.KindCreateChange, ""))
}

func TestScheduler_SubmitUnknownKind(t *testing.T) {
	s := newTestScheduler(t, DefaultConfig())

	err := s.SubmitWork("DeployChange", "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInboxFull))
	assert.Contains(t, err.Error(), "DeployChange")
}

func TestScheduler_AddWorkerBackpressure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueCapacity = 1
	s := newTestScheduler(t, cfg)

	require.NoError(t, s.AddWorker(rigor50("a")))
	assert.ErrorIs(t, s.AddWorker(rigor50("b")), ErrInboxFull)
	assert.ErrorIs(t, s.AddWorker(WorkerSpec{Name: "  "}), ErrEmptyWorkerName)
}

func TestScheduler_DuplicateWorkerIgnored(t *testing.T) {
	s := newTestScheduler(t, lockstepConfig())
	ctx := tickCtx(t, s)

	require.NoError(t, s.AddWorker(rigor50("René")))
	require.NoError(t, s.AddWorker(rigor50("René")))
	sum := s.Tick(ctx)

	assert.Equal(t, []string{"René"}, sum.Joined)
	snap := s.Snapshot()
	assert.Len(t, snap.Workers, 1)
	assert.Equal(t, uint64(1), snap.Stats.DuplicateWorkers)
}

func TestScheduler_FullMailboxSkipsDispatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn.Probability = 0
	s := newTestScheduler(t, cfg)
	ctx := tickCtx(t, s)
	idle(s, "stuck", 1)
	require.NoError(t, s.SubmitWork(work.KindCreateChange, ""))

	first := s.Tick(ctx)
	assert.Equal(t, 1, first.Dispatched)

	second := s.Tick(ctx)
	assert.Equal(t, 0, second.Dispatched)
	assert.Equal(t, 1, second.Dropped)
	assert.Equal(t, uint64(1), s.Snapshot().Stats.DroppedDispatches)
}

func TestScheduler_BreakBuffTargetsContributors(t *testing.T) {
	s := newTestScheduler(t, DefaultConfig())
	a := idle(s, "a", 4)
	b := idle(s, "b", 4)
	item := s.catalog.NewItem(s.seq.Next(), work.KindShortBreak, work.VariantStandard)
	s.registry[item.ID] = item

	s.applyReport(work.Report{Item: item.ID, Worker: "b", EffortDelta: 1}, &TickSummary{})

	assert.Empty(t, s.registry)
	assert.Zero(t, mailboxLen(a))
	assert.Equal(t, 1, mailboxLen(b))
}

func TestScheduler_SharedBreakBroadcasts(t *testing.T) {
	s := newTestScheduler(t, DefaultConfig())
	a := idle(s, "a", 4)
	b := idle(s, "b", 4)
	c := idle(s, "c", 4)
	item := s.catalog.NewItem(s.seq.Next(), work.KindShortBreak, work.VariantStandard)
	s.registry[item.ID] = item

	s.applyReport(work.Report{Item: item.ID, Worker: "a", EffortDelta: 0.5}, &TickSummary{})
	s.applyReport(work.Report{Item: item.ID, Worker: "b", EffortDelta: 0.5}, &TickSummary{})

	assert.Equal(t, 1, mailboxLen(a))
	assert.Equal(t, 1, mailboxLen(b))
	assert.Equal(t, 1, mailboxLen(c), "non-contributors receive a broadcast")
}

func TestScheduler_ReportStateKeepsRosterName(t *testing.T) {
	s := newTestScheduler(t, DefaultConfig())
	a := idle(s, "a", 4)
	b := idle(s, "b", 4)
	c := idle(s, "c", 4)
	item := s.catalog.NewItem(s.seq.Next(), work.KindShortBreak, work.VariantStandard)
	s.registry[item.ID] = item

	s.applyReport(work.Report{Item: item.ID, Worker: "a", EffortDelta: 0.5,
		State: work.WorkerState{Name: "someone-else", Processed: 1}}, &TickSummary{})
	s.applyReport(work.Report{Item: item.ID, Worker: "b", EffortDelta: 0.5,
		State: work.WorkerState{Processed: 1}}, &TickSummary{})

	assert.Equal(t, 1, mailboxLen(a))
	assert.Equal(t, 1, mailboxLen(b))
	assert.Equal(t, 1, mailboxLen(c))

	s.publish()
	var names []string
	for _, w := range s.Snapshot().Workers {
		names = append(names, w.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, uint64(1), s.Snapshot().Workers[0].Processed)
}

func TestScheduler_TelemetryReportIsNotStale(t *testing.T) {
	s := newTestScheduler(t, DefaultConfig())
	ctx := tickCtx(t, s)
	idle(s, "a", 4)

	s.reports <- work.Report{Worker: "a", State: work.WorkerState{Resources: work.Resources{Energy: 70, Focus: 77}}}
	sum := s.Tick(ctx)

	assert.Zero(t, sum.Reports)
	assert.Zero(t, sum.Stale)
	snap := s.Snapshot()
	assert.Zero(t, snap.Stats.StaleReports)
	require.Len(t, snap.Workers, 1)
	assert.Equal(t, "a", snap.Workers[0].Name)
	assert.Equal(t, 77.0, snap.Workers[0].Resources.Focus)
}

func TestScheduler_BuffVisibleInSnapshot(t *testing.T) {
	s := newTestScheduler(t, lockstepConfig(), WithWorkers(rigor50("okko")))
	ctx := tickCtx(t, s)
	require.NoError(t, s.SubmitWork(work.KindShortBreak, ""))

	var before work.Resources
	var done TickSummary
	for i := 0; i < 100; i++ {
		if snap := s.Snapshot(); len(snap.Workers) == 1 {
			before = snap.Workers[0].Resources
		}
		sum := s.Tick(ctx)
		if len(sum.Completed) > 0 {
			done = sum
			break
		}
	}
	require.Len(t, done.Completed, 1)
	assert.Equal(t, 1, done.Reports, "telemetry is not counted as work")
	assert.Zero(t, done.Stale)

	// A lone contributor gets the stimulant (+30 focus, +20 energy) in the
	// same tick; one tick of work drains well under a point.
	after := s.Snapshot().Workers[0].Resources
	assert.InDelta(t, before.Focus+30, after.Focus, 1)
	assert.InDelta(t, before.Energy+20, after.Energy, 1)

	// The next tick has nothing left to wait for.
	next := s.Tick(ctx)
	assert.Zero(t, next.Reports)
	assert.Equal(t, after, s.Snapshot().Workers[0].Resources)
}

func TestScheduler_UnknownBuffTargetLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := newTestScheduler(t, DefaultConfig(), WithLogger(logger))
	a := idle(s, "a", 4)

	s.grant(workflow.Outcome{Buff: "stimulant", Targets: []string{"ghost", "a"}})

	assert.Contains(t, buf.String(), "buff target unknown")
	assert.Contains(t, buf.String(), "worker=ghost")
	assert.Equal(t, 1, mailboxLen(a))
	assert.Zero(t, s.stats.DroppedBuffs)
}

func TestScheduler_FullMailboxDropsBuff(t *testing.T) {
	s := newTestScheduler(t, DefaultConfig())
	a := idle(s, "a", 1)
	require.NoError(t, a.Dispatch(work.Dispatch{Item: 100, Kind: work.KindCreateChange}))
	item := s.catalog.NewItem(s.seq.Next(), work.KindShortBreak, work.VariantStandard)
	s.registry[item.ID] = item

	s.applyReport(work.Report{Item: item.ID, Worker: "a", EffortDelta: 1}, &TickSummary{})

	assert.Equal(t, uint64(1), s.stats.DroppedBuffs)
}

func TestScheduler_SpawnUntilCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Spawn.OpenCap = 3
	s := New(cfg, testCatalog(t), WithLogger(quietLogger()), WithRand(testutil.Always()))
	ctx := tickCtx(t, s)

	for i := 0; i < 6; i++ {
		s.Tick(ctx)
	}

	snap := s.Snapshot()
	assert.Len(t, snap.OpenItems, 3)
	assert.Equal(t, uint64(3), snap.Stats.Spawned)
	for _, item := range snap.OpenItems {
		assert.Equal(t, work.KindCreateChange, item.Kind)
		assert.Equal(t, work.VariantStandard, item.Variant)
	}
}

func TestScheduler_SpawnSuppressed(t *testing.T) {
	s := newTestScheduler(t, DefaultConfig())
	ctx := tickCtx(t, s)
	for i := 0; i < 10; i++ {
		s.Tick(ctx)
	}
	assert.Empty(t, s.Snapshot().OpenItems)
}

func TestPickEntry(t *testing.T) {
	entries := DefaultEntries()

	assert.Equal(t, work.VariantStandard, pickEntry(entries, 0).Variant)
	assert.Equal(t, work.VariantStandard, pickEntry(entries, 0.79).Variant)
	assert.Equal(t, work.VariantUrgent, pickEntry(entries, 0.8).Variant)
	assert.Equal(t, work.VariantUrgent, pickEntry(entries, 0.999).Variant)
}

func TestSortItems(t *testing.T) {
	prio := map[work.Kind]int{
		work.KindMergeChange:  0,
		work.KindReviewChange: 1,
		work.KindCreateChange: 2,
		work.KindShortBreak:   3,
	}
	items := []*work.Item{
		{ID: 1, Kind: work.KindShortBreak, TotalEffort: 1},
		{ID: 2, Kind: work.KindCreateChange, TotalEffort: 10, EffortApplied: 1},
		{ID: 3, Kind: work.KindCreateChange, TotalEffort: 10, EffortApplied: 5},
		{ID: 4, Kind: work.KindCreateChange, TotalEffort: 10, EffortApplied: 1},
		{ID: 5, Kind: work.KindMergeChange, TotalEffort: 1},
		{ID: 6, Kind: work.KindReviewChange, TotalEffort: 10},
	}

	sortItems(items, func(k work.Kind) int { return prio[k] })

	var ids []work.ItemID
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []work.ItemID{5, 6, 3, 2, 4, 1}, ids)
}

type recorder struct {
	mu      sync.Mutex
	entries []work.CompletedEntry
	err     error
}

func (r *recorder) Record(e work.CompletedEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func TestScheduler_ForwardsCompletionsToRecorder(t *testing.T) {
	rec := &recorder{}
	s := newTestScheduler(t, lockstepConfig(), WithWorkers(rigor50("okko")), WithRecorder(rec))
	ctx := tickCtx(t, s)
	require.NoError(t, s.SubmitWork(work.KindMergeChange, ""))

	for i := 0; i < 10; i++ {
		s.Tick(ctx)
	}

	require.Len(t, rec.entries, 1)
	assert.Equal(t, work.KindMergeChange, rec.entries[0].Kind)
}

func TestScheduler_RecorderBacklogCounted(t *testing.T) {
	rec := &recorder{err: errors.New("backlog")}
	s := newTestScheduler(t, lockstepConfig(), WithWorkers(rigor50("okko")), WithRecorder(rec))
	ctx := tickCtx(t, s)
	require.NoError(t, s.SubmitWork(work.KindMergeChange, ""))

	for i := 0; i < 10; i++ {
		s.Tick(ctx)
	}

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Stats.Completed)
	assert.Equal(t, uint64(1), snap.Stats.JournalDropped)
}

func TestScheduler_SnapshotIsIsolated(t *testing.T) {
	s := newTestScheduler(t, lockstepConfig(), WithWorkers(rigor50("okko")))
	ctx := tickCtx(t, s)

	assert.Zero(t, s.Snapshot().Tick)

	require.NoError(t, s.SubmitWork(work.KindCreateChange, ""))
	s.Tick(ctx)

	snap := s.Snapshot()
	snap.OpenItems[0].Contributors[0] = "mallory"
	snap.Workers[0].Name = "mallory"

	fresh := s.Snapshot()
	assert.Equal(t, []string{"okko"}, fresh.OpenItems[0].Contributors)
	assert.Equal(t, "okko", fresh.Workers[0].Name)
	assert.Equal(t, uint64(1), fresh.Workers[0].Processed)
}

func TestScheduler_LowFocusWorkerSubmitsBreaks(t *testing.T) {
	s := newTestScheduler(t, lockstepConfig(),
		WithWorkers(WorkerSpec{Name: "anton", Resources: work.Resources{Energy: 50, Focus: 10}}),
		WithWorkerRand(func(string) work.Rand { return testutil.Always() }))
	ctx := tickCtx(t, s)
	require.NoError(t, s.SubmitWork(work.KindCreateChange, ""))

	s.Tick(ctx)
	sum := s.Tick(ctx)

	var breaks int
	for _, o := range sum.Opened {
		if o.Kind == work.KindShortBreak {
			breaks++
			assert.Equal(t, "anton", o.Source)
		}
	}
	assert.Equal(t, 1, breaks)
}

func TestScheduler_RunTicksUntilCancelled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = time.Millisecond

	var (
		mu    sync.Mutex
		ticks int
	)
	s := newTestScheduler(t, cfg, WithWorkers(rigor50("okko")), WithObserver(func(Snapshot) {
		mu.Lock()
		ticks++
		mu.Unlock()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, ticks)
	assert.Equal(t, uint64(ticks), s.Snapshot().Tick)
}

func mailboxLen(w *worker.Worker) int {
	return w.Pending()
}
