package scheduler

import (
	"sort"

	"github.com/roach88/crunch/internal/work"
)

// ordered returns the open items in dispatch order: priority rank
// ascending, then progress descending so nearly finished work drains first,
// then ID ascending.
func (s *Scheduler) ordered() []*work.Item {
	items := make([]*work.Item, 0, len(s.registry))
	for _, item := range s.registry {
		items = append(items, item)
	}
	sortItems(items, s.catalog.Priority)
	return items
}

func sortItems(items []*work.Item, priority func(work.Kind) int) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if pa, pb := priority(a.Kind), priority(b.Kind); pa != pb {
			return pa < pb
		}
		if pa, pb := a.Progress(), b.Progress(); pa != pb {
			return pa > pb
		}
		return a.ID < b.ID
	})
}
