package work

import "sync/atomic"

// Sequence mints item IDs. Every call to Next returns a value strictly
// greater than the last, so IDs are never reused even after items leave the
// registry.
//
// Sequence is safe for concurrent use, although the scheduler is its only
// caller in practice.
type Sequence struct {
	n atomic.Uint64
}

// NewSequence returns a sequence whose first ID is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt returns a sequence whose first ID is start+1.
func NewSequenceAt(start uint64) *Sequence {
	s := &Sequence{}
	s.n.Store(start)
	return s
}

// Next returns the next ID.
func (s *Sequence) Next() ItemID {
	return ItemID(s.n.Add(1))
}

// Current returns the last ID handed out, or the start value.
func (s *Sequence) Current() ItemID {
	return ItemID(s.n.Load())
}
