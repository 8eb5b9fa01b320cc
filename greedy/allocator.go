package greedy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/allocation"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/selection"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/valuedensity"
)

// Allocator runs the three stage greedy algorithm: order the tasks once
// by value density, rank the candidate servers per task, then ask the
// resource allocation policy for a speed plan on each candidate until
// one commits. Tasks are visited exactly once and committed tasks are
// never bumped by later ones.
type Allocator struct {
	density    valuedensity.Density
	selection  selection.Policy
	allocation allocation.Policy
	metrics    *Metrics
	running    *atomic.Bool
}

// NewAllocator creates an allocator from its three policies.
func NewAllocator(density valuedensity.Density, selectionPolicy selection.Policy,
	allocationPolicy allocation.Policy, parent tally.Scope) (*Allocator, error) {
	if density == nil || selectionPolicy == nil || allocationPolicy == nil {
		return nil, errors.New("greedy allocator needs a value density, a server selection and a resource allocation policy")
	}
	return &Allocator{
		density:    density,
		selection:  selectionPolicy,
		allocation: allocationPolicy,
		metrics:    NewMetrics(parent.SubScope("greedy")),
		running:    atomic.NewBool(false),
	}, nil
}

// Name identifies the allocator by its policy triple.
func (a *Allocator) Name() string {
	return fmt.Sprintf("GREEDY(%s, %s, %s)", a.density.Name(), a.selection.Name(), a.allocation.Name())
}

// Run performs one allocation pass. The model must be clean of any
// previous run; infeasible tasks end Rejected, which is an outcome and
// not an error. When the context expires mid-pass the remaining tasks
// are rejected and the result reflects the work done so far.
func (a *Allocator) Run(ctx context.Context, tasks []*model.Task, servers []*model.Server) (*model.Result, error) {
	if !a.running.CompareAndSwap(false, true) {
		return nil, errors.New("allocation run already in progress")
	}
	defer a.running.Store(false)

	if err := model.CheckClean(tasks, servers); err != nil {
		return nil, errors.Wrap(err, "greedy allocation requires a reset model")
	}

	a.metrics.Running.Update(1)
	defer a.metrics.Running.Update(0)

	start := time.Now()
	committed, rejected := 0, 0
	interrupted := false
	for _, task := range orderTasks(a.density, tasks) {
		if !interrupted && ctx.Err() != nil {
			interrupted = true
			log.WithFields(log.Fields{
				"algorithm": a.Name(),
				"committed": committed,
				"rejected":  rejected,
			}).Warn("allocation pass interrupted, rejecting remaining tasks")
		}
		if interrupted {
			task.SetState(model.Rejected)
			rejected++
			continue
		}
		if a.place(task, servers) {
			committed++
		} else {
			rejected++
		}
	}

	elapsed := time.Since(start)
	result := model.NewResult(a.Name(), tasks, servers, elapsed, false)

	a.metrics.TasksCommitted.Inc(int64(committed))
	a.metrics.TasksRejected.Inc(int64(rejected))
	a.metrics.SocialWelfare.Update(result.SocialWelfare)
	a.metrics.RunDuration.Record(elapsed)

	log.WithFields(log.Fields{
		"algorithm":      a.Name(),
		"tasks":          len(tasks),
		"committed":      committed,
		"rejected":       rejected,
		"social_welfare": result.SocialWelfare,
		"duration":       elapsed,
	}).Info("greedy allocation finished")
	return result, nil
}

// place tries the ranked candidate servers in order, committing on the
// first feasible speed plan. Every server gets at most one attempt and
// a rejection leaves all state untouched.
func (a *Allocator) place(task *model.Task, servers []*model.Server) bool {
	candidates := selection.Rank(a.selection, task, servers)
	if len(candidates) == 0 {
		log.WithField("task", task.Name).Debug("no server can run task")
		task.SetState(model.Rejected)
		return false
	}
	task.SetState(model.CandidateSelected)

	for _, server := range candidates {
		a.metrics.ServerAttempts.Inc(1)
		assignments, ok := a.allocation.Plan(task, server)
		if !ok {
			log.WithFields(log.Fields{
				"task":   task.Name,
				"server": server.Name,
			}).Debug("no feasible speed plan on candidate server")
			continue
		}
		if err := server.Commit(task, assignments); err != nil {
			log.WithFields(log.Fields{
				"task":   task.Name,
				"server": server.Name,
			}).WithError(err).Warn("planned speeds failed to commit")
			continue
		}
		task.SetState(model.Committed)
		log.WithFields(log.Fields{
			"task":          task.Name,
			"server":        server.Name,
			"loading_speed": task.LoadingSpeed(),
			"compute_speed": task.ComputeSpeed(),
			"sending_speed": task.SendingSpeed(),
		}).Debug("task committed")
		return true
	}
	task.SetState(model.Rejected)
	return false
}

// orderTasks returns the tasks in descending density order, equal
// densities keeping their input order.
func orderTasks(density valuedensity.Density, tasks []*model.Task) []*model.Task {
	scores := make(map[*model.Task]float64, len(tasks))
	for _, task := range tasks {
		scores[task] = density.Evaluate(task)
	}
	ordered := make([]*model.Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return scores[ordered[i]] > scores[ordered[j]]
	})
	return ordered
}
