package scalar

import "math"

// Epsilon is the tolerance used for floating point comparison of resource
// amounts and deadlines.
const Epsilon = 1e-9

// Resources holds an amount of each server resource dimension: storage held
// on disk, computation rate and network bandwidth rate. Loading and sending
// both draw from the bandwidth dimension.
type Resources struct {
	Storage     float64 `json:"storage" yaml:"storage"`
	Computation float64 `json:"computation" yaml:"computation"`
	Bandwidth   float64 `json:"bandwidth" yaml:"bandwidth"`
}

// lessThanOrEqual compares two amounts taking Epsilon into consideration.
func lessThanOrEqual(f1, f2 float64) bool {
	v := f1 - f2
	if math.Abs(v) < Epsilon {
		return true
	}
	return v < 0
}

// Contains determines whether the current Resources is large enough to
// contain the other one in every dimension.
func (r Resources) Contains(other Resources) bool {
	return lessThanOrEqual(other.Storage, r.Storage) &&
		lessThanOrEqual(other.Computation, r.Computation) &&
		lessThanOrEqual(other.Bandwidth, r.Bandwidth)
}

// Add returns the sum of the current and the other Resources.
func (r Resources) Add(other Resources) Resources {
	return Resources{
		Storage:     r.Storage + other.Storage,
		Computation: r.Computation + other.Computation,
		Bandwidth:   r.Bandwidth + other.Bandwidth,
	}
}

// Subtract returns the current Resources minus the other one. The result may
// carry small negative amounts from floating point error; callers that need
// a guarded subtraction should use TrySubtract.
func (r Resources) Subtract(other Resources) Resources {
	return Resources{
		Storage:     r.Storage - other.Storage,
		Computation: r.Computation - other.Computation,
		Bandwidth:   r.Bandwidth - other.Bandwidth,
	}
}

// TrySubtract attempts to subtract the other Resources from the current one,
// returning false if the other holds more of any dimension.
func (r Resources) TrySubtract(other Resources) (Resources, bool) {
	if !r.Contains(other) {
		return Resources{}, false
	}
	return r.Subtract(other), true
}

// NonEmpty returns whether any dimension holds a non-zero amount.
func (r Resources) NonEmpty() bool {
	return math.Abs(r.Storage) > Epsilon ||
		math.Abs(r.Computation) > Epsilon ||
		math.Abs(r.Bandwidth) > Epsilon
}

// Positive returns whether every dimension holds a strictly positive amount.
func (r Resources) Positive() bool {
	return r.Storage > 0 && r.Computation > 0 && r.Bandwidth > 0
}

// Sum returns the total amount across all dimensions.
func (r Resources) Sum() float64 {
	return r.Storage + r.Computation + r.Bandwidth
}

// Minimum returns the minimum amount of resources in each dimension.
func Minimum(r1, r2 Resources) Resources {
	return Resources{
		Storage:     math.Min(r1.Storage, r2.Storage),
		Computation: math.Min(r1.Computation, r2.Computation),
		Bandwidth:   math.Min(r1.Bandwidth, r2.Bandwidth),
	}
}
