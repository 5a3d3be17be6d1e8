package work

import "slices"

// ItemID identifies an open or completed item. IDs are minted by Sequence.
type ItemID uint64

// Item is a unit of work in progress. The scheduler owns every open Item
// exclusively; workers only ever see the Dispatch built from it.
type Item struct {
	ID            ItemID   `json:"id"`
	Kind          Kind     `json:"kind"`
	Variant       string   `json:"variant,omitempty"`
	TotalEffort   float64  `json:"total_effort"`
	EffortApplied float64  `json:"effort_applied"`
	RatePerTick   float64  `json:"rate_per_tick"`
	Weights       Weights  `json:"weights"`
	Contributors  []string `json:"contributors"`
}

// Dispatch returns the command that asks a worker for one tick of it.
func (it *Item) Dispatch() Dispatch {
	return Dispatch{Item: it.ID, Kind: it.Kind, Rate: it.RatePerTick, Weights: it.Weights}
}

// Progress returns the completed fraction in [0, 1].
func (it *Item) Progress() float64 {
	if it.TotalEffort <= 0 {
		return 0
	}
	return it.EffortApplied / it.TotalEffort
}

// Done reports whether the item has received all required effort.
func (it *Item) Done() bool {
	return it.EffortApplied >= it.TotalEffort
}

// Apply adds delta to the applied effort, clamps the total to
// [0, TotalEffort], and records worker as a contributor.
//
// A negative delta is applied as-is: workers with a negative multiplier
// make progress regress, but never below zero.
func (it *Item) Apply(delta float64, worker string) {
	it.EffortApplied += delta
	if it.EffortApplied < 0 {
		it.EffortApplied = 0
	}
	if it.EffortApplied > it.TotalEffort {
		it.EffortApplied = it.TotalEffort
	}
	it.AddContributor(worker)
}

// AddContributor records worker once. First-contribution order is kept.
func (it *Item) AddContributor(worker string) {
	if worker == "" || slices.Contains(it.Contributors, worker) {
		return
	}
	it.Contributors = append(it.Contributors, worker)
}

// CompletedEntry is the history tuple recorded when an item completes.
// It is never mutated after it enters the history buffer.
type CompletedEntry struct {
	ID           ItemID   `json:"id"`
	Kind         Kind     `json:"kind"`
	Variant      string   `json:"variant,omitempty"`
	Contributors []string `json:"contributors"`
	Tick         uint64   `json:"tick"`
}

// Completed moves the item's identity into a history entry.
func (it *Item) Completed(tick uint64) CompletedEntry {
	return CompletedEntry{
		ID:           it.ID,
		Kind:         it.Kind,
		Variant:      it.Variant,
		Contributors: slices.Clone(it.Contributors),
		Tick:         tick,
	}
}
