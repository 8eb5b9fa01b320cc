package solver

import (
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/scalar"
)

// Verify recomputes a result's aggregates from the live model state and
// reports whether they agree. Disagreement is logged rather than fatal so
// a run over many solvers keeps going.
func Verify(result *model.Result, tasks []*model.Task, servers []*model.Server) bool {
	welfare := 0.0
	committed := 0
	for _, task := range tasks {
		if task.Allocated() && task.WithinDeadline() {
			welfare += task.Value
			committed++
		}
	}
	if math.Abs(welfare-result.SocialWelfare) > scalar.Epsilon || committed != result.TasksCommitted {
		log.WithFields(log.Fields{
			"algorithm":        result.Algorithm,
			"result_welfare":   result.SocialWelfare,
			"model_welfare":    welfare,
			"result_committed": result.TasksCommitted,
			"model_committed":  committed,
		}).Warn("result disagrees with the model state")
		return false
	}
	for _, server := range servers {
		if !utilisationClose(result.ServerUtilisation[server.Name], server.Utilisation()) {
			log.WithFields(log.Fields{
				"algorithm": result.Algorithm,
				"server":    server.Name,
			}).Warn("result utilisation disagrees with the server state")
			return false
		}
	}
	return true
}

func utilisationClose(a, b scalar.Resources) bool {
	return math.Abs(a.Storage-b.Storage) <= scalar.Epsilon &&
		math.Abs(a.Computation-b.Computation) <= scalar.Epsilon &&
		math.Abs(a.Bandwidth-b.Bandwidth) <= scalar.Epsilon
}

// ValidateSolution checks the structural invariants of a finished run:
// state flags agree with the bindings, every committed task meets its
// deadline, the task/server references are mutual and no server exceeds
// its capacity.
func ValidateSolution(tasks []*model.Task, servers []*model.Server) error {
	var err error
	for _, task := range tasks {
		switch {
		case task.State() == model.Committed && !task.Allocated():
			err = multierr.Append(err, errors.Errorf("task %q is committed but holds no server", task.Name))
		case task.Allocated() && task.State() != model.Committed:
			err = multierr.Append(err, errors.Errorf(
				"task %q is allocated to server %q in state %q", task.Name, task.Server().Name, task.State()))
		}
		if !task.Allocated() {
			continue
		}
		if !task.WithinDeadline() {
			err = multierr.Append(err, errors.Errorf(
				"task %q completes at %f past its deadline %f", task.Name, task.CompletionTime(), task.Deadline))
		}
		held := false
		for _, resident := range task.Server().Tasks() {
			if resident == task {
				held = true
				break
			}
		}
		if !held {
			err = multierr.Append(err, errors.Errorf(
				"task %q points at server %q which does not hold it", task.Name, task.Server().Name))
		}
	}
	for _, server := range servers {
		usage := scalar.Resources{}
		for _, task := range server.Tasks() {
			if task.Server() != server {
				err = multierr.Append(err, errors.Errorf(
					"server %q holds task %q which is bound elsewhere", server.Name, task.Name))
			}
			usage = usage.Add(task.Usage())
		}
		if !server.Capacity().Contains(usage) {
			err = multierr.Append(err, errors.Errorf(
				"server %q is oversubscribed, usage %+v exceeds capacity %+v",
				server.Name, usage, server.Capacity()))
		}
	}
	return err
}
