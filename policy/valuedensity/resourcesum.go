package valuedensity

import (
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

// resourceSum scores a task by its total resource requirements alone,
// serving the heaviest tasks while servers are still empty.
type resourceSum struct {
	name string
}

// NewResourceSum returns the resource sum density
func NewResourceSum() Density {
	return &resourceSum{name: ResourceSum}
}

// Name is implementation of Density.Name
func (r *resourceSum) Name() string {
	return r.name
}

// Evaluate is implementation of Density.Evaluate
func (r *resourceSum) Evaluate(task *model.Task) float64 {
	return task.RequirementsSum()
}
