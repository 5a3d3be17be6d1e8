package scheduler

import "github.com/roach88/crunch/internal/work"

// pushFront inserts e at the front of h and evicts from the back so that
// len(h) <= capacity. The most recent completion is always h[0].
func pushFront(h []work.CompletedEntry, e work.CompletedEntry, capacity int) []work.CompletedEntry {
	h = append(h, work.CompletedEntry{})
	copy(h[1:], h)
	h[0] = e
	if len(h) > capacity {
		clear(h[capacity:])
		h = h[:capacity]
	}
	return h
}
