package work

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMultiplier_DefaultWeights(t *testing.T) {
	c := NeutralCharacteristics()
	c.Rigor = 50

	// (50 + 100 + 100 + 100 + 100*2 + 100*1.5 - 0) / 400
	got := Multiplier(DefaultWeights(), c, DefaultResources())
	assert.InDelta(t, 1.75, got, 1e-12)
}

func TestMultiplier_CanGoNegative(t *testing.T) {
	c := Characteristics{Experience: 15, Rigor: 15, Skill: 15, Fitness: 15}
	r := Resources{Energy: 0, Focus: 0, Stress: 100}

	// (60 - 300) / 400
	got := Multiplier(DefaultWeights(), c, r)
	assert.InDelta(t, -0.6, got, 1e-12)
}

func TestMultiplier_CanExceedOne(t *testing.T) {
	got := Multiplier(DefaultWeights(), NeutralCharacteristics(), Resources{Energy: 200, Focus: 200})
	assert.Greater(t, got, 1.0)
}

func TestWeights_Finite(t *testing.T) {
	assert.True(t, DefaultWeights().Finite())

	w := DefaultWeights()
	w.Divisor = 0
	assert.False(t, w.Finite(), "zero divisor is malformed")

	w = DefaultWeights()
	w.Focus = math.NaN()
	assert.False(t, w.Finite())

	w = DefaultWeights()
	w.Stress = math.Inf(1)
	assert.False(t, w.Finite())
}

func TestBuff_ApplyToIsAdditiveAndUncapped(t *testing.T) {
	stim := Buff{ID: BuffStimulant, Focus: 30, Energy: 20}
	r := Resources{Energy: 95, Focus: 10, Stress: 4}

	got := stim.ApplyTo(r)
	assert.Equal(t, Resources{Energy: 115, Focus: 40, Stress: 4}, got)
}

func TestRandomCharacteristics_Range(t *testing.T) {
	r := NewRand(7)
	for i := 0; i < 200; i++ {
		c := RandomCharacteristics(r)
		for _, v := range []float64{c.Experience, c.Rigor, c.Skill, c.Fitness} {
			assert.GreaterOrEqual(t, v, 15.0)
			assert.Less(t, v, 85.0)
		}
	}
}

func TestNewRand_SeededIsReproducible(t *testing.T) {
	a := NewRand(99)
	b := NewRand(99)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestNormalizeName(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed form.
	assert.Equal(t, "Ren\u00e9", NormalizeName("  Rene\u0301 "))
}
