package allocation

import (
	"math"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/scalar"
)

// planProportional splits the whole server capacity between the
// incoming task and every resident task. Computation speed is each
// task's share of the computation pool, while loading and sending
// speeds share the single bandwidth pool, weighted by the storage and
// results data requirements. Storage is consumed by amount rather than
// split by rate, so it is checked against capacity directly.
//
// Requirements are raised to power before normalisation; powers above
// one skew speeds towards the demanding tasks.
func planProportional(task *model.Task, server *model.Server, power float64) ([]model.SpeedAssignment, bool) {
	tasks := append(server.Tasks(), task)

	storage := 0.0
	bandwidthWeight := 0.0
	computeWeight := 0.0
	for _, t := range tasks {
		storage += t.RequiredStorage
		bandwidthWeight += math.Pow(t.RequiredStorage, power) + math.Pow(t.RequiredResultsData, power)
		computeWeight += math.Pow(t.RequiredComputation, power)
	}

	capacity := server.Capacity()
	if storage > capacity.Storage+scalar.Epsilon {
		return nil, false
	}
	if bandwidthWeight <= 0 || computeWeight <= 0 {
		return nil, false
	}

	assignments := make([]model.SpeedAssignment, 0, len(tasks))
	for _, t := range tasks {
		assignment := model.SpeedAssignment{
			Task:    t,
			Loading: capacity.Bandwidth * math.Pow(t.RequiredStorage, power) / bandwidthWeight,
			Compute: capacity.Computation * math.Pow(t.RequiredComputation, power) / computeWeight,
			Sending: capacity.Bandwidth * math.Pow(t.RequiredResultsData, power) / bandwidthWeight,
		}
		if !(assignment.Loading > 0) || !(assignment.Compute > 0) || !(assignment.Sending > 0) {
			return nil, false
		}
		completion := t.RequiredStorage/assignment.Loading +
			t.RequiredComputation/assignment.Compute +
			t.RequiredResultsData/assignment.Sending
		if completion > t.Deadline+scalar.Epsilon {
			return nil, false
		}
		assignments = append(assignments, assignment)
	}
	return assignments, true
}
