package valuedensity

import (
	"math"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

// utilityDeadlinePerResource scores a task by its value divided by the
// product of its deadline and total resource requirements. Valuable,
// urgent, lightweight tasks come first.
type utilityDeadlinePerResource struct {
	name string
}

// NewUtilityDeadlinePerResource returns the utility deadline per resource density
func NewUtilityDeadlinePerResource() Density {
	return &utilityDeadlinePerResource{name: UtilityDeadlinePerResource}
}

// Name is implementation of Density.Name
func (u *utilityDeadlinePerResource) Name() string {
	return u.name
}

// Evaluate is implementation of Density.Evaluate. A non-positive
// divisor scores positive infinity so that degenerate tasks sort first
// instead of poisoning the ordering with NaN.
func (u *utilityDeadlinePerResource) Evaluate(task *model.Task) float64 {
	divisor := task.Deadline * task.RequirementsSum()
	if divisor <= 0 {
		return math.Inf(1)
	}
	return task.Value / divisor
}
