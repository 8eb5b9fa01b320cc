package selection

import (
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

// sumResources prefers the server with the most summed availability
// left, spreading tasks towards the emptiest machines.
type sumResources struct {
	name string
}

// NewSumResources returns the available resource sum policy
func NewSumResources() Policy {
	return &sumResources{name: SumResources}
}

// Name is implementation of Policy.Name
func (s *sumResources) Name() string {
	return s.name
}

// Score is implementation of Policy.Score
func (s *sumResources) Score(task *model.Task, server *model.Server) float64 {
	return server.Available().Sum()
}

// Maximise is implementation of Policy.Maximise
func (s *sumResources) Maximise() bool {
	return true
}
