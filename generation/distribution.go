package generation

import (
	"math"
	"math/rand"
)

// Distribution represents a probability distribution to draw entity fields
// from.
type Distribution interface {
	Value(random *rand.Rand) float64
}

// NewGaussian creates a new Gaussian with the given mean and standard
// deviation.
func NewGaussian(mean, deviation float64) Gaussian {
	return Gaussian{Mean: mean, StandardDeviation: deviation}
}

// Gaussian is a normal distribution clamped below at one, so that drawn
// requirements and capacities are always valid model inputs.
type Gaussian struct {
	Mean              float64
	StandardDeviation float64
}

// Value returns a random value from the clamped gaussian.
func (g Gaussian) Value(random *rand.Rand) float64 {
	return math.Max(1, random.NormFloat64()*g.StandardDeviation+g.Mean)
}

// Uniform is a uniform distribution over the half open interval [Min, Max).
type Uniform struct {
	Min float64
	Max float64
}

// Value returns a random value from the interval.
func (u Uniform) Value(random *rand.Rand) float64 {
	return u.Min + random.Float64()*(u.Max-u.Min)
}
