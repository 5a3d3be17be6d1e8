package work

import (
	"math/rand/v2"
	"time"
)

// Rand is the randomness the scheduler and workers draw from. Tests inject
// scripted implementations to force or suppress random events.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n).
	IntN(n int) int
}

// NewRand returns a PCG-backed source. A zero seed derives one from the wall
// clock, so runs differ unless a seed is configured.
func NewRand(seed uint64) Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Derive returns an independent source for a sub-component, so each worker
// goroutine owns its own generator.
func Derive(r Rand, salt uint64) Rand {
	seed := uint64(r.Float64()*(1<<53)) ^ salt
	if seed == 0 {
		seed = salt + 1
	}
	return rand.New(rand.NewPCG(seed, salt))
}
