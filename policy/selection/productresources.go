package selection

import (
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

// productResources prefers the server with the largest product of
// available resources, penalising servers already squeezed on any one
// dimension harder than the sum does.
type productResources struct {
	name string
}

// NewProductResources returns the available resource product policy
func NewProductResources() Policy {
	return &productResources{name: ProductResources}
}

// Name is implementation of Policy.Name
func (p *productResources) Name() string {
	return p.name
}

// Score is implementation of Policy.Score
func (p *productResources) Score(task *model.Task, server *model.Server) float64 {
	available := server.Available()
	return available.Storage * available.Computation * available.Bandwidth
}

// Maximise is implementation of Policy.Maximise
func (p *productResources) Maximise() bool {
	return true
}
