package scheduler

import (
	"slices"

	"github.com/roach88/crunch/internal/work"
)

// Stats are cumulative counters since the scheduler was created.
type Stats struct {
	Ticks             uint64 `json:"ticks"`
	Dispatched        uint64 `json:"dispatched"`
	DroppedDispatches uint64 `json:"dropped_dispatches"`
	DroppedBuffs      uint64 `json:"dropped_buffs"`
	StaleReports      uint64 `json:"stale_reports"`
	Completed         uint64 `json:"completed"`
	Spawned           uint64 `json:"spawned"`
	Submitted         uint64 `json:"submitted"`
	JournalDropped    uint64 `json:"journal_dropped"`
	DuplicateWorkers  uint64 `json:"duplicate_workers"`
}

// OpenItem is the read-only view of an open item.
type OpenItem struct {
	ID           work.ItemID `json:"id"`
	Kind         work.Kind   `json:"kind"`
	Variant      string      `json:"variant"`
	Progress     float64     `json:"progress"`
	Contributors []string    `json:"contributors"`
}

// Snapshot is the state published at the end of a tick. Nothing in it is
// shared with the scheduler's own state.
type Snapshot struct {
	Tick      uint64                `json:"tick"`
	OpenItems []OpenItem            `json:"open_items"`
	History   []work.CompletedEntry `json:"history"`
	Workers   []work.WorkerState    `json:"workers"`
	Stats     Stats                 `json:"stats"`
}

func (s *Scheduler) publish() {
	order := s.ordered()
	snap := &Snapshot{
		Tick:      s.tick,
		OpenItems: make([]OpenItem, len(order)),
		History:   slices.Clone(s.history),
		Workers:   make([]work.WorkerState, len(s.roster)),
		Stats:     s.stats,
	}
	for i, item := range order {
		snap.OpenItems[i] = OpenItem{
			ID:           item.ID,
			Kind:         item.Kind,
			Variant:      item.Variant,
			Progress:     item.Progress(),
			Contributors: slices.Clone(item.Contributors),
		}
	}
	for i, m := range s.roster {
		snap.Workers[i] = m.state
	}

	s.snapshot.Store(snap)
	if s.observer != nil {
		s.observer(snap.clone())
	}
}

// clone deep-copies the snapshot so callers cannot reach the stored one.
func (snap *Snapshot) clone() Snapshot {
	out := *snap
	out.OpenItems = slices.Clone(snap.OpenItems)
	for i := range out.OpenItems {
		out.OpenItems[i].Contributors = slices.Clone(out.OpenItems[i].Contributors)
	}
	out.History = slices.Clone(snap.History)
	for i := range out.History {
		out.History[i].Contributors = slices.Clone(out.History[i].Contributors)
	}
	out.Workers = slices.Clone(snap.Workers)
	return out
}
