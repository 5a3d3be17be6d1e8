package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/crunch/internal/work"
	"github.com/roach88/crunch/internal/worker"
	"github.com/roach88/crunch/internal/workflow"
)

// Sources of opened items other than worker names.
const (
	SourceSpawn    = "spawn"
	SourceWorkflow = "workflow"
	SourceExternal = "external"
)

// Opened describes an item that entered the registry during a tick.
type Opened struct {
	ID      work.ItemID `json:"id"`
	Kind    work.Kind   `json:"kind"`
	Variant string      `json:"variant"`
	// Source is SourceSpawn, SourceWorkflow, a worker name, or the
	// submitter's source.
	Source string `json:"source"`
}

// TickSummary reports what one tick did.
type TickSummary struct {
	Tick       uint64
	Joined     []string
	Opened     []Opened
	Dispatched int
	Dropped    int
	Reports    int
	Stale      int
	Completed  []work.CompletedEntry
}

// Tick runs one scheduling step. Workers that join during this tick run
// until ctx is cancelled. Tick never fails: problems are logged and counted
// in Stats.
func (s *Scheduler) Tick(ctx context.Context) TickSummary {
	s.tick++
	s.stats.Ticks++
	sum := TickSummary{Tick: s.tick}

	s.drainJoins(ctx, &sum)
	s.drainSubmissions(&sum)
	s.maybeSpawn(&sum)

	order := s.ordered()
	sent := s.dispatch(order, &sum)

	for _, r := range s.collect(ctx, sent) {
		s.applyReport(r, &sum)
	}
	// Completions may have buffed workers; settle their telemetry so the
	// snapshot shows the buffed resources.
	for s.buffed > 0 {
		n := s.buffed
		s.buffed = 0
		for _, r := range s.collect(ctx, n) {
			s.applyReport(r, &sum)
		}
	}

	s.publish()

	if len(sum.Completed) > 0 || len(sum.Opened) > 0 {
		s.logger.Debug("tick",
			"tick", s.tick,
			"open", len(s.registry),
			"dispatched", sum.Dispatched,
			"completed", len(sum.Completed))
	}
	return sum
}

func (s *Scheduler) drainJoins(ctx context.Context, sum *TickSummary) {
	specs := s.pending
	s.pending = nil
	for {
		select {
		case spec := <-s.joins:
			specs = append(specs, spec)
			continue
		default:
		}
		break
	}

	for _, spec := range specs {
		spec.Name = work.NormalizeName(spec.Name)
		if _, dup := s.index[spec.Name]; dup {
			s.stats.DuplicateWorkers++
			s.logger.Error("worker join rejected", "worker", spec.Name, "error", ErrDuplicateWorker)
			continue
		}

		w := worker.New(worker.Config{
			Name:            spec.Name,
			Characteristics: spec.Characteristics,
			Resources:       spec.Resources,
			MailboxCapacity: s.cfg.QueueCapacity,
			Breaks:          s.cfg.Breaks,
		}, s.reports, s.workerRand(spec.Name),
			worker.WithSubmitter(s),
			worker.WithLogger(s.logger))

		s.index[spec.Name] = len(s.roster)
		s.roster = append(s.roster, &member{
			w: w,
			state: work.WorkerState{
				Name:            spec.Name,
				Characteristics: spec.Characteristics,
				Resources:       spec.Resources,
			},
		})
		sum.Joined = append(sum.Joined, spec.Name)

		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			_ = w.Run(ctx)
		}()

		s.logger.Info("worker joined", "worker", spec.Name, "roster", len(s.roster))
	}
}

func (s *Scheduler) drainSubmissions(sum *TickSummary) {
	var batch []work.Submission
	for {
		select {
		case sub := <-s.submissions:
			batch = append(batch, sub)
			continue
		default:
		}
		break
	}

	if s.cfg.Lockstep {
		sort.SliceStable(batch, func(i, j int) bool {
			return s.rank(batch[i].Source) < s.rank(batch[j].Source)
		})
	}

	for _, sub := range batch {
		s.stats.Submitted++
		s.open(sub.Kind, sub.Variant, sub.Source, sum)
	}
}

// rank orders sources for lockstep determinism: external callers first,
// then workers in roster order.
func (s *Scheduler) rank(source string) int {
	if i, ok := s.index[source]; ok {
		return i + 1
	}
	return 0
}

func (s *Scheduler) maybeSpawn(sum *TickSummary) {
	spawn := s.cfg.Spawn
	if len(spawn.Entries) == 0 || len(s.registry) >= spawn.OpenCap {
		return
	}
	if s.rng.Float64() >= spawn.Probability {
		return
	}

	entry := pickEntry(spawn.Entries, s.rng.Float64())
	s.stats.Spawned++
	s.open(entry.Kind, entry.Variant, SourceSpawn, sum)
}

// pickEntry maps u in [0, 1) onto the cumulative weights.
func pickEntry(entries []EntryPoint, u float64) EntryPoint {
	var total float64
	for _, e := range entries {
		total += e.Weight
	}
	target := u * total
	for _, e := range entries {
		if target < e.Weight {
			return e
		}
		target -= e.Weight
	}
	return entries[len(entries)-1]
}

func (s *Scheduler) open(kind work.Kind, variant, source string, sum *TickSummary) *work.Item {
	item := s.catalog.NewItem(s.seq.Next(), kind, variant)
	s.registry[item.ID] = item
	sum.Opened = append(sum.Opened, Opened{ID: item.ID, Kind: kind, Variant: variant, Source: source})
	s.logger.Debug("item opened", "item", item.ID, "kind", kind, "variant", variant, "source", source)
	return item
}

func (s *Scheduler) dispatch(order []*work.Item, sum *TickSummary) int {
	sent := 0
	for i, m := range s.roster {
		if i >= len(order) {
			break
		}
		item := order[i]
		if err := m.w.Dispatch(item.Dispatch()); err != nil {
			s.stats.DroppedDispatches++
			sum.Dropped++
			s.logger.Warn("dispatch skipped", "worker", m.w.Name(), "item", item.ID, "error", err)
			continue
		}
		s.stats.Dispatched++
		sum.Dispatched++
		sent++
	}
	return sent
}

// collect gathers the reports to apply this tick. Without lockstep it takes
// whatever has arrived; with lockstep it waits for expected reports and
// orders them by roster position.
func (s *Scheduler) collect(ctx context.Context, expected int) []work.Report {
	var batch []work.Report

	if s.cfg.Lockstep {
		for len(batch) < expected {
			select {
			case r := <-s.reports:
				batch = append(batch, r)
			case <-ctx.Done():
				return batch
			}
		}
	}

	for {
		select {
		case r := <-s.reports:
			batch = append(batch, r)
			continue
		default:
		}
		break
	}

	if s.cfg.Lockstep {
		sort.SliceStable(batch, func(i, j int) bool {
			return s.rank(batch[i].Worker) < s.rank(batch[j].Worker)
		})
	}
	return batch
}

// applyReport records the worker's telemetry and, unless the report is
// telemetry only, applies its effort.
func (s *Scheduler) applyReport(r work.Report, sum *TickSummary) {
	if i, ok := s.index[r.Worker]; ok {
		m := s.roster[i]
		m.state = r.State
		m.state.Name = m.w.Name()
	}
	if r.Telemetry() {
		return
	}

	sum.Reports++

	item, ok := s.registry[r.Item]
	if !ok {
		s.stats.StaleReports++
		sum.Stale++
		s.logger.Debug("stale report ignored", "item", r.Item, "worker", r.Worker)
		return
	}

	item.Apply(r.EffortDelta, r.Worker)
	if item.Done() {
		s.complete(item, sum)
	}
}

func (s *Scheduler) complete(item *work.Item, sum *TickSummary) {
	delete(s.registry, item.ID)

	entry := item.Completed(s.tick)
	s.history = pushFront(s.history, entry, s.cfg.HistoryCapacity)
	s.stats.Completed++
	sum.Completed = append(sum.Completed, entry)

	outcome := workflow.Resolve(s.catalog.DefaultsFor(item.Kind), item, s.names())
	s.logger.Info("item completed",
		"item", item.ID,
		"kind", item.Kind,
		"contributors", item.Contributors,
		"outcome", outcome.String())

	switch {
	case outcome.Spawn != "":
		s.open(outcome.Spawn, outcome.Variant, SourceWorkflow, sum)
	case outcome.Buff != "":
		s.grant(outcome)
	}

	if s.recorder != nil {
		if err := s.recorder.Record(entry); err != nil {
			s.stats.JournalDropped++
			s.logger.Warn("completion not journaled", "item", entry.ID, "error", err)
		}
	}
}

func (s *Scheduler) grant(outcome workflow.Outcome) {
	buff, ok := s.catalog.Buff(outcome.Buff)
	if !ok {
		// Catalog construction rejects unknown buffs.
		panic(fmt.Sprintf("scheduler: unknown buff %q", outcome.Buff))
	}
	for _, name := range outcome.Targets {
		i, ok := s.index[name]
		if !ok {
			s.logger.Debug("buff target unknown", "worker", name, "buff", buff.ID)
			continue
		}
		if err := s.roster[i].w.ApplyBuff(buff); err != nil {
			s.stats.DroppedBuffs++
			s.logger.Warn("buff skipped", "worker", name, "buff", buff.ID, "error", err)
			continue
		}
		if s.cfg.Lockstep {
			s.buffed++
		}
	}
}

func (s *Scheduler) names() []string {
	names := make([]string, len(s.roster))
	for i, m := range s.roster {
		names[i] = m.w.Name()
	}
	return names
}
