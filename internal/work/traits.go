package work

import "math"

// Characteristics are the immutable traits of a worker.
type Characteristics struct {
	Experience float64 `json:"experience" yaml:"experience"`
	Rigor      float64 `json:"rigor" yaml:"rigor"`
	Skill      float64 `json:"skill" yaml:"skill"`
	Fitness    float64 `json:"fitness" yaml:"fitness"`
}

// NeutralCharacteristics returns traits at 100, the baseline the default
// weights are calibrated against.
func NeutralCharacteristics() Characteristics {
	return Characteristics{Experience: 100, Rigor: 100, Skill: 100, Fitness: 100}
}

// RandomCharacteristics draws each trait uniformly from [15, 85).
func RandomCharacteristics(r Rand) Characteristics {
	draw := func() float64 { return 15 + r.Float64()*70 }
	return Characteristics{
		Experience: draw(),
		Rigor:      draw(),
		Skill:      draw(),
		Fitness:    draw(),
	}
}

// Resources are the mutable state a worker spends while working.
// Values conventionally sit in 0..100 but are not bounded.
type Resources struct {
	Energy float64 `json:"energy" yaml:"energy"`
	Focus  float64 `json:"focus" yaml:"focus"`
	Stress float64 `json:"stress" yaml:"stress"`
}

// DefaultResources returns a rested worker.
func DefaultResources() Resources {
	return Resources{Energy: 100, Focus: 100, Stress: 0}
}

// Weights parameterize the cost multiplier:
//
//	(Experience*experience + Rigor*rigor + Skill*skill + Fitness*fitness
//	 + Focus*focus + Energy*energy - Stress*stress) / Divisor
type Weights struct {
	Experience float64 `json:"experience"`
	Rigor      float64 `json:"rigor"`
	Skill      float64 `json:"skill"`
	Fitness    float64 `json:"fitness"`
	Energy     float64 `json:"energy"`
	Focus      float64 `json:"focus"`
	Stress     float64 `json:"stress"`
	Divisor    float64 `json:"divisor"`
}

// DefaultWeights yields (rigor + fitness + skill + experience + focus*2 +
// energy*1.5 - stress*3) / 400.
func DefaultWeights() Weights {
	return Weights{
		Experience: 1,
		Rigor:      1,
		Skill:      1,
		Fitness:    1,
		Energy:     1.5,
		Focus:      2,
		Stress:     3,
		Divisor:    400,
	}
}

// Finite reports whether every weight is a finite number and the divisor is
// positive.
func (w Weights) Finite() bool {
	for _, v := range []float64{w.Experience, w.Rigor, w.Skill, w.Fitness, w.Energy, w.Focus, w.Stress, w.Divisor} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return w.Divisor > 0
}

// Multiplier evaluates the weights against a worker's current traits and
// resources. The result is not clamped: it can be negative or exceed 1.
func Multiplier(w Weights, c Characteristics, r Resources) float64 {
	sum := w.Rigor*c.Rigor +
		w.Fitness*c.Fitness +
		w.Skill*c.Skill +
		w.Experience*c.Experience +
		w.Focus*r.Focus +
		w.Energy*r.Energy -
		w.Stress*r.Stress
	return sum / w.Divisor
}

// BuffID names a configured buff.
type BuffID string

// BuffStimulant is the buff granted by a completed break.
const BuffStimulant BuffID = "stimulant"

// Buff is a one-shot additive adjustment to a worker's resources.
type Buff struct {
	ID     BuffID  `json:"id"`
	Energy float64 `json:"energy"`
	Focus  float64 `json:"focus"`
	Stress float64 `json:"stress"`
}

// ApplyTo returns r with the buff's deltas added. No caps are applied.
func (b Buff) ApplyTo(r Resources) Resources {
	r.Energy += b.Energy
	r.Focus += b.Focus
	r.Stress += b.Stress
	return r
}
