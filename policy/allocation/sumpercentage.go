package allocation

import (
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

// sumPercentage gives every task the share of each pool that its
// requirement is of the summed demand.
type sumPercentage struct {
	name string
}

// NewSumPercentage returns the linear percentage split policy
func NewSumPercentage() Policy {
	return &sumPercentage{name: SumPercentage}
}

// Name is implementation of Policy.Name
func (p *sumPercentage) Name() string {
	return p.name
}

// Plan is implementation of Policy.Plan
func (p *sumPercentage) Plan(task *model.Task, server *model.Server) ([]model.SpeedAssignment, bool) {
	return planProportional(task, server, 1)
}
