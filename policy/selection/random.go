package selection

import (
	"math/rand"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

// random scores every server with a fresh random number, ranking the
// runnable servers in a uniformly random order.
type random struct {
	name string
	rnd  *rand.Rand
}

// NewRandom returns the random order policy
func NewRandom(rnd *rand.Rand) Policy {
	return &random{name: Random, rnd: rnd}
}

// Name is implementation of Policy.Name
func (r *random) Name() string {
	return r.name
}

// Score is implementation of Policy.Score
func (r *random) Score(task *model.Task, server *model.Server) float64 {
	return r.rnd.Float64()
}

// Maximise is implementation of Policy.Maximise
func (r *random) Maximise() bool {
	return true
}
