package valuedensity

import (
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

// value scores a task by its private value alone.
type value struct {
	name string
}

// NewValue returns the value density
func NewValue() Density {
	return &value{name: Value}
}

// Name is implementation of Density.Name
func (v *value) Name() string {
	return v.name
}

// Evaluate is implementation of Density.Evaluate
func (v *value) Evaluate(task *model.Task) float64 {
	return task.Value
}
