package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"

	"github.com/stringtheorys/Flexible-Cloud-Resource/greedy"
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/valuedensity"
)

// FixedGreedySolver places tasks whose stage speeds were fixed ahead of
// server selection. Tasks are visited in value density order of their
// originals and land on the feasible server with the most remaining
// capacity. Implements Solver by deriving the fixed views with its speed
// policy, and FixedSolver for callers that derive them themselves.
type FixedGreedySolver struct {
	density valuedensity.Density
	speeds  model.FixedSpeedPolicy
	metrics *greedy.Metrics
	running *atomic.Bool
}

// NewFixedGreedySolver returns a fixed greedy solver over the given value
// density and fixed speed policy.
func NewFixedGreedySolver(density valuedensity.Density, speeds model.FixedSpeedPolicy,
	parent tally.Scope) (*FixedGreedySolver, error) {
	if density == nil || speeds == nil {
		return nil, errors.New("fixed greedy needs a value density and a fixed speed policy")
	}
	return &FixedGreedySolver{
		density: density,
		speeds:  speeds,
		metrics: greedy.NewMetrics(parent.SubScope("fixed_greedy")),
		running: atomic.NewBool(false),
	}, nil
}

// Name is the registry name, not the parameterised algorithm name kept
// in the result.
func (f *FixedGreedySolver) Name() string {
	return FixedGreedy
}

func (f *FixedGreedySolver) algorithm() string {
	return fmt.Sprintf("FIXED_GREEDY(%s, %s)", f.density.Name(), f.speeds.Name())
}

// Solve derives fixed speed views of the tasks with the solver's speed
// policy and places those. The original tasks are never touched; the
// result describes the derived views.
func (f *FixedGreedySolver) Solve(ctx context.Context, tasks []*model.Task, servers []*model.Server) (*model.Result, error) {
	fixed, err := model.NewFixedTasks(tasks, f.speeds, servers)
	if err != nil {
		return nil, errors.Wrap(err, "deriving fixed speed views")
	}
	return f.SolveFixed(ctx, fixed, servers)
}

// SolveFixed is an implementation of FixedSolver.SolveFixed.
func (f *FixedGreedySolver) SolveFixed(ctx context.Context, tasks []*model.FixedTask, servers []*model.Server) (*model.Result, error) {
	if !f.running.CompareAndSwap(false, true) {
		return nil, errors.New("fixed greedy run already in progress")
	}
	defer f.running.Store(false)

	if err := model.CheckCleanFixed(tasks, servers); err != nil {
		return nil, errors.Wrap(err, "fixed greedy requires a reset model")
	}

	f.metrics.Running.Update(1)
	defer f.metrics.Running.Update(0)
	start := time.Now()

	committed := 0
	for _, task := range f.orderTasks(tasks) {
		if ctx.Err() != nil {
			log.WithField("task", task.Name).
				Warn("fixed placement interrupted, leaving remaining tasks unplaced")
			break
		}
		if f.place(task, servers) {
			committed++
			f.metrics.TasksCommitted.Inc(1)
		} else {
			f.metrics.TasksRejected.Inc(1)
		}
	}

	result := model.NewFixedResult(f.algorithm(), tasks, servers, time.Since(start), false)
	f.metrics.SocialWelfare.Update(result.SocialWelfare)
	f.metrics.RunDuration.Record(time.Since(start))
	log.WithFields(log.Fields{
		"algorithm":      result.Algorithm,
		"committed":      committed,
		"tasks":          len(tasks),
		"social_welfare": result.SocialWelfare,
	}).Info("fixed greedy placement finished")
	return result, nil
}

// orderTasks sorts a copy of the fixed tasks by descending value density of
// their originals, preserving input order between equals.
func (f *FixedGreedySolver) orderTasks(tasks []*model.FixedTask) []*model.FixedTask {
	ordered := make([]*model.FixedTask, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return f.density.Evaluate(ordered[i].Original) > f.density.Evaluate(ordered[j].Original)
	})
	return ordered
}

// place binds the task to the feasible server with the most remaining
// capacity, returning false when no server can hold the fixed usage.
func (f *FixedGreedySolver) place(task *model.FixedTask, servers []*model.Server) bool {
	candidates := make([]*model.Server, 0, len(servers))
	for _, server := range servers {
		f.metrics.ServerAttempts.Inc(1)
		if task.RunnableOn(server) {
			candidates = append(candidates, server)
		}
	}
	if len(candidates) == 0 {
		log.WithField("task", task.Name).Debug("no server can hold the fixed usage")
		return false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Available().Sum() > candidates[j].Available().Sum()
	})
	if err := model.AllocateFixed(task, candidates[0], 0); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"task":   task.Name,
			"server": candidates[0].Name,
		}).Warn("fixed allocation failed after the feasibility check")
		return false
	}
	log.WithFields(log.Fields{
		"task":   task.Name,
		"server": candidates[0].Name,
	}).Debug("fixed task placed")
	return true
}
