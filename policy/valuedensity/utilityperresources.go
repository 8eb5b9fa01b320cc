package valuedensity

import (
	"math"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

// utilityPerResources scores a task by its value divided by its total
// resource requirements, ignoring the deadline.
type utilityPerResources struct {
	name string
}

// NewUtilityPerResources returns the utility per resources density
func NewUtilityPerResources() Density {
	return &utilityPerResources{name: UtilityPerResources}
}

// Name is implementation of Density.Name
func (u *utilityPerResources) Name() string {
	return u.name
}

// Evaluate is implementation of Density.Evaluate
func (u *utilityPerResources) Evaluate(task *model.Task) float64 {
	divisor := task.RequirementsSum()
	if divisor <= 0 {
		return math.Inf(1)
	}
	return task.Value / divisor
}
