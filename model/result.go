package model

import (
	"time"

	"github.com/pborman/uuid"

	"github.com/stringtheorys/Flexible-Cloud-Resource/scalar"
)

// Result is an immutable snapshot of a finished allocation run.
type Result struct {
	ID        string `json:"id"`
	Algorithm string `json:"algorithm"`

	// SocialWelfare is the summed value of the tasks that ended allocated
	// and deadline feasible.
	SocialWelfare float64 `json:"social_welfare"`
	// PercentageSocialWelfare is SocialWelfare relative to a reference
	// welfare; the sum of all task values unless the caller supplies an
	// upper bound via SetReferenceWelfare.
	PercentageSocialWelfare  float64 `json:"percentage_social_welfare"`
	PercentageTasksAllocated float64 `json:"percentage_tasks_allocated"`

	TasksTotal     int           `json:"tasks_total"`
	TasksCommitted int           `json:"tasks_committed"`
	SolveTime      time.Duration `json:"solve_time"`
	// Optimal reports whether the solver certified the result as optimal
	// rather than a time limited heuristic stop.
	Optimal bool `json:"optimal"`

	// Rounds and TotalRevenue are only set by auction solvers.
	Rounds       int     `json:"rounds,omitempty"`
	TotalRevenue float64 `json:"total_revenue,omitempty"`

	ServerUtilisation map[string]scalar.Resources `json:"server_utilisation"`
}

// NewResult aggregates the final task and server state of a run.
func NewResult(algorithm string, tasks []*Task, servers []*Server, solveTime time.Duration, optimal bool) *Result {
	welfare := 0.0
	totalValue := 0.0
	committed := 0
	for _, task := range tasks {
		totalValue += task.Value
		if task.Allocated() && task.WithinDeadline() {
			welfare += task.Value
			committed++
		}
	}
	return newResult(algorithm, welfare, totalValue, committed, len(tasks), servers, solveTime, optimal)
}

// NewFixedResult aggregates the final fixed task and server state of a run.
func NewFixedResult(algorithm string, tasks []*FixedTask, servers []*Server, solveTime time.Duration, optimal bool) *Result {
	welfare := 0.0
	totalValue := 0.0
	committed := 0
	for _, task := range tasks {
		totalValue += task.Value
		if task.Allocated() && task.WithinDeadline() {
			welfare += task.Value
			committed++
		}
	}
	return newResult(algorithm, welfare, totalValue, committed, len(tasks), servers, solveTime, optimal)
}

func newResult(algorithm string, welfare, totalValue float64, committed, total int,
	servers []*Server, solveTime time.Duration, optimal bool) *Result {
	utilisation := make(map[string]scalar.Resources, len(servers))
	for _, server := range servers {
		utilisation[server.Name] = server.Utilisation()
	}

	result := &Result{
		ID:                uuid.New(),
		Algorithm:         algorithm,
		SocialWelfare:     welfare,
		TasksTotal:        total,
		TasksCommitted:    committed,
		SolveTime:         solveTime,
		Optimal:           optimal,
		ServerUtilisation: utilisation,
	}
	if totalValue > 0 {
		result.PercentageSocialWelfare = welfare / totalValue
	}
	if total > 0 {
		result.PercentageTasksAllocated = float64(committed) / float64(total)
	}
	return result
}

// SetReferenceWelfare rescales PercentageSocialWelfare against a caller
// supplied reference, typically an optimal or upper bound welfare.
func (r *Result) SetReferenceWelfare(reference float64) {
	if reference > 0 {
		r.PercentageSocialWelfare = r.SocialWelfare / reference
	}
}
