package testutil

import "sync"

// ScriptedRand replays predetermined random values.
//
// Float64 and IntN each consume their own script in order. Once a script is
// exhausted the fallback value is returned forever, so a test only scripts
// the draws it cares about.
//
// Thread-safety: ScriptedRand is safe for concurrent use via internal mutex.
// Sharing one between goroutines makes the draw order depend on scheduling;
// give each worker its own.
type ScriptedRand struct {
	mu            sync.Mutex
	floats        []float64
	ints          []int
	floatFallback float64
}

// NewScriptedRand returns a source that yields floats in order and then
// fallback.
func NewScriptedRand(fallback float64, floats ...float64) *ScriptedRand {
	return &ScriptedRand{floats: floats, floatFallback: fallback}
}

// WithInts sets the IntN script. Values are reduced modulo n on use.
func (r *ScriptedRand) WithInts(ints ...int) *ScriptedRand {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ints = ints
	return r
}

// Float64 returns the next scripted float.
func (r *ScriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) == 0 {
		return r.floatFallback
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

// IntN returns the next scripted int modulo n, or 0 once exhausted.
func (r *ScriptedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 || n <= 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v < 0 {
		v = -v
	}
	return v % n
}

// Always returns a source whose Float64 is always 0, so every
// probability check fires.
func Always() *ScriptedRand {
	return NewScriptedRand(0)
}

// Never returns a source whose Float64 is always just below 1, so no
// probability check below 1 fires.
func Never() *ScriptedRand {
	return NewScriptedRand(0.999999)
}
