package allocation

import (
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

// defaultPower is the exponent the registered policy weighs
// requirements with.
const defaultPower = 3

// sumPowPercentage splits each pool proportionally to the tasks'
// requirements raised to a power, starving lightweight tasks in favour
// of demanding ones.
type sumPowPercentage struct {
	name  string
	power float64
}

// NewSumPowPercentage returns a power weighted percentage split policy
func NewSumPowPercentage(power float64) Policy {
	return &sumPowPercentage{name: SumPowPercentage, power: power}
}

// Name is implementation of Policy.Name
func (p *sumPowPercentage) Name() string {
	return p.name
}

// Plan is implementation of Policy.Plan
func (p *sumPowPercentage) Plan(task *model.Task, server *model.Server) ([]model.SpeedAssignment, bool) {
	return planProportional(task, server, p.power)
}
