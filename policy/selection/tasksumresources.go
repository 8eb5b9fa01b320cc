package selection

import (
	"math"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/allocation"
)

// taskSumResources scores a server by the share of its capacity the
// task would claim under a resource allocation policy. The smallest
// footprint wins, packing tasks where they cost the least.
type taskSumResources struct {
	name   string
	policy allocation.Policy
}

// NewTaskSumResources returns the planned footprint policy
func NewTaskSumResources(policy allocation.Policy) Policy {
	return &taskSumResources{name: TaskSumResources, policy: policy}
}

// Name is implementation of Policy.Name
func (t *taskSumResources) Name() string {
	return t.name
}

// Score is implementation of Policy.Score. Servers where the policy
// cannot plan the task score positive infinity and rank last.
func (t *taskSumResources) Score(task *model.Task, server *model.Server) float64 {
	assignments, ok := t.policy.Plan(task, server)
	if !ok {
		return math.Inf(1)
	}
	for _, assignment := range assignments {
		if assignment.Task != task {
			continue
		}
		capacity := server.Capacity()
		return task.RequiredStorage/capacity.Storage +
			assignment.Compute/capacity.Computation +
			(assignment.Loading+assignment.Sending)/capacity.Bandwidth
	}
	return math.Inf(1)
}

// Maximise is implementation of Policy.Maximise
func (t *taskSumResources) Maximise() bool {
	return false
}
