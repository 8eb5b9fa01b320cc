package model

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// ResetModel clears every task's assignment state, prices included, and
// every server's allocated set. Mandatory between runs over the same pool;
// idempotent.
func ResetModel(tasks []*Task, servers []*Server) {
	for _, task := range tasks {
		task.ResetAllocation(true)
	}
	for _, server := range servers {
		server.ResetAllocations()
	}
}

// ResetFixedModel clears the server bindings of fixed tasks, keeping their
// precomputed speeds, and resets the servers.
func ResetFixedModel(tasks []*FixedTask, servers []*Server) {
	for _, task := range tasks {
		task.ResetAllocation(true)
	}
	for _, server := range servers {
		server.ResetAllocations()
	}
}

// CheckCleanFixed fails when any fixed task or server still carries
// assignment state from a previous run.
func CheckCleanFixed(tasks []*FixedTask, servers []*Server) error {
	var err error
	for _, task := range tasks {
		if task.Allocated() {
			err = multierr.Append(err, errors.Errorf(
				"fixed task %q still allocated to server %q, reset the model between runs", task.Name, task.Server().Name))
		}
	}
	for _, server := range servers {
		if server.TaskCount() != 0 {
			err = multierr.Append(err, errors.Errorf(
				"server %q still holds %d tasks, reset the model between runs", server.Name, server.TaskCount()))
		}
		if server.Available() != server.Capacity() {
			err = multierr.Append(err, errors.Errorf(
				"server %q availability %+v differs from capacity %+v",
				server.Name, server.Available(), server.Capacity()))
		}
	}
	return err
}

// CheckClean fails when any task or server still carries assignment state
// from a previous run. Running an allocator over a stale pool would double
// count capacity, so this is checked at every run start.
func CheckClean(tasks []*Task, servers []*Server) error {
	var err error
	for _, task := range tasks {
		if task.Allocated() {
			err = multierr.Append(err, errors.Errorf(
				"task %q still allocated to server %q, reset the model between runs", task.Name, task.Server().Name))
			continue
		}
		if task.State() != Unprocessed {
			err = multierr.Append(err, errors.Errorf(
				"task %q in state %q, want unprocessed", task.Name, task.State()))
		}
		if task.LoadingSpeed() != 0 || task.ComputeSpeed() != 0 || task.SendingSpeed() != 0 {
			err = multierr.Append(err, errors.Errorf(
				"task %q carries stale speeds without a server", task.Name))
		}
	}
	for _, server := range servers {
		if server.TaskCount() != 0 {
			err = multierr.Append(err, errors.Errorf(
				"server %q still holds %d tasks, reset the model between runs", server.Name, server.TaskCount()))
		}
		if server.Available() != server.Capacity() {
			err = multierr.Append(err, errors.Errorf(
				"server %q availability %+v differs from capacity %+v",
				server.Name, server.Available(), server.Capacity()))
		}
	}
	return err
}
