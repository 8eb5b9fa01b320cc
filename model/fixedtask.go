package model

import (
	"math"

	"github.com/pkg/errors"

	"github.com/stringtheorys/Flexible-Cloud-Resource/scalar"
)

// FixedSpeedPolicy precomputes the stage speeds of a task before any server
// assignment is known. The batch is the set of tasks competing for the pool;
// the pool is the total resources assumed available to the batch.
type FixedSpeedPolicy interface {
	Name() string
	Speeds(task *Task, batch []*Task, pool scalar.Resources) (loading, compute, sending float64)
}

// SumPowerSpeeds gives each task a share of the pool proportional to its
// requirement raised to Power over the sum of the same quantity across the
// batch. Loading and sending shares both come out of the bandwidth pool.
type SumPowerSpeeds struct {
	Power float64
}

// Name will return the policy name.
func (p SumPowerSpeeds) Name() string {
	return "sum-power-speeds"
}

// Speeds will return the pool shares of the task.
func (p SumPowerSpeeds) Speeds(task *Task, batch []*Task, pool scalar.Resources) (float64, float64, float64) {
	bandwidthDenom := 0.0
	computeDenom := 0.0
	for _, t := range batch {
		bandwidthDenom += math.Pow(t.RequiredStorage, p.Power) + math.Pow(t.RequiredResultsData, p.Power)
		computeDenom += math.Pow(t.RequiredComputation, p.Power)
	}
	loading := pool.Bandwidth * math.Pow(task.RequiredStorage, p.Power) / bandwidthDenom
	sending := pool.Bandwidth * math.Pow(task.RequiredResultsData, p.Power) / bandwidthDenom
	compute := pool.Computation * math.Pow(task.RequiredComputation, p.Power) / computeDenom
	return loading, compute, sending
}

// MinSumSpeeds picks the speeds minimising loading+compute+sending subject
// to the deadline, independent of any batch or pool. With K = sqrt(S) +
// sqrt(C) + sqrt(R) the minimiser is (sqrt(S), sqrt(C), sqrt(R)) * K/d,
// which meets the deadline exactly.
type MinSumSpeeds struct{}

// Name will return the policy name.
func (MinSumSpeeds) Name() string {
	return "min-sum-speeds"
}

// Speeds will return the deadline-tight minimum speed sum for the task.
func (MinSumSpeeds) Speeds(task *Task, _ []*Task, _ scalar.Resources) (float64, float64, float64) {
	k := math.Sqrt(task.RequiredStorage) + math.Sqrt(task.RequiredComputation) + math.Sqrt(task.RequiredResultsData)
	scale := k / task.Deadline
	return math.Sqrt(task.RequiredStorage) * scale,
		math.Sqrt(task.RequiredComputation) * scale,
		math.Sqrt(task.RequiredResultsData) * scale
}

// FixedTask is a derived view of a task whose stage speeds were fixed ahead
// of server selection. It keeps a back reference to the original task for
// identity and reporting and never mutates it. Allocation only binds the
// server; the speeds survive resets.
type FixedTask struct {
	Name     string
	Original *Task

	RequiredStorage     float64
	RequiredComputation float64
	RequiredResultsData float64
	Deadline            float64
	Value               float64

	LoadingSpeed float64
	ComputeSpeed float64
	SendingSpeed float64

	server *Server
	price  float64
}

// NewFixedTask derives a fixed-speed view of the task. The batch must
// contain the task itself; the pool is the total resources the batch is
// assumed to share.
func NewFixedTask(task *Task, policy FixedSpeedPolicy, batch []*Task, pool scalar.Resources) (*FixedTask, error) {
	loading, compute, sending := policy.Speeds(task, batch, pool)
	if !(loading > 0) || !(compute > 0) || !(sending > 0) {
		return nil, errors.Errorf("policy %q produced non-positive speeds (%f, %f, %f) for task %q",
			policy.Name(), loading, compute, sending, task.Name)
	}
	return &FixedTask{
		Name:                "fixed-" + task.Name,
		Original:            task,
		RequiredStorage:     task.RequiredStorage,
		RequiredComputation: task.RequiredComputation,
		RequiredResultsData: task.RequiredResultsData,
		Deadline:            task.Deadline,
		Value:               task.Value,
		LoadingSpeed:        loading,
		ComputeSpeed:        compute,
		SendingSpeed:        sending,
	}, nil
}

// NewFixedTasks derives fixed-speed views for the whole batch without
// foreknowledge: every task shares the summed capacity of the server pool.
func NewFixedTasks(tasks []*Task, policy FixedSpeedPolicy, servers []*Server) ([]*FixedTask, error) {
	pool := scalar.Resources{}
	for _, server := range servers {
		pool = pool.Add(server.Capacity())
	}
	fixed := make([]*FixedTask, 0, len(tasks))
	for _, task := range tasks {
		ft, err := NewFixedTask(task, policy, tasks, pool)
		if err != nil {
			return nil, err
		}
		fixed = append(fixed, ft)
	}
	return fixed, nil
}

// NewForeknowledgeFixedTasks derives fixed-speed views conditioned on each
// task's true eventual server: the batch is the set of tasks sharing that
// server and the pool is that server's capacity. Every task must already
// carry a server assignment.
func NewForeknowledgeFixedTasks(tasks []*Task, policy FixedSpeedPolicy) ([]*FixedTask, error) {
	byServer := make(map[*Server][]*Task)
	for _, task := range tasks {
		if !task.Allocated() {
			return nil, errors.Errorf("task %q has no server assignment to condition on", task.Name)
		}
		byServer[task.Server()] = append(byServer[task.Server()], task)
	}
	fixed := make([]*FixedTask, 0, len(tasks))
	for _, task := range tasks {
		server := task.Server()
		ft, err := NewFixedTask(task, policy, byServer[server], server.Capacity())
		if err != nil {
			return nil, err
		}
		fixed = append(fixed, ft)
	}
	return fixed, nil
}

// Server will return the server the fixed task is bound to, nil when unbound.
func (f *FixedTask) Server() *Server {
	return f.server
}

// Price will return the auction price of the fixed task.
func (f *FixedTask) Price() float64 {
	return f.price
}

// Allocated returns true iff the fixed task is bound to a server.
func (f *FixedTask) Allocated() bool {
	return f.server != nil
}

// Allocate binds the fixed task to a server. Unlike Task.Allocate the
// speeds are already decided and only the server reference moves.
func (f *FixedTask) Allocate(server *Server, price float64) error {
	if f.server != nil {
		return errors.Errorf("fixed task %q is already allocated to server %q", f.Name, f.server.Name)
	}
	f.server = server
	f.price = price
	return nil
}

// ResetAllocation unbinds the server, keeping the fixed speeds.
func (f *FixedTask) ResetAllocation(forgetPrice bool) {
	f.server = nil
	if forgetPrice {
		f.price = 0
	}
}

// CompletionTime will return the end-to-end duration of the three stages at
// the fixed speeds.
func (f *FixedTask) CompletionTime() float64 {
	return f.RequiredStorage/f.LoadingSpeed +
		f.RequiredComputation/f.ComputeSpeed +
		f.RequiredResultsData/f.SendingSpeed
}

// WithinDeadline returns true iff the fixed speeds fit the deadline within
// floating point tolerance.
func (f *FixedTask) WithinDeadline() bool {
	return f.CompletionTime() <= f.Deadline+scalar.Epsilon
}

// Usage will return the amounts the fixed task consumes on a server.
func (f *FixedTask) Usage() scalar.Resources {
	return scalar.Resources{
		Storage:     f.RequiredStorage,
		Computation: f.ComputeSpeed,
		Bandwidth:   f.LoadingSpeed + f.SendingSpeed,
	}
}

// RunnableOn returns true iff the fixed usage fits the server's remaining
// capacities and the fixed speeds meet the deadline.
func (f *FixedTask) RunnableOn(server *Server) bool {
	return server.Available().Contains(f.Usage()) && f.WithinDeadline()
}

// AllocateFixed binds a fixed task to a server at a price and reserves its
// usage, keeping both sides of the relation consistent.
func AllocateFixed(task *FixedTask, server *Server, price float64) error {
	if task.Allocated() {
		return errors.Errorf("fixed task %q is already allocated to server %q", task.Name, task.Server().Name)
	}
	if err := server.Reserve(task.Usage()); err != nil {
		return errors.Wrapf(err, "fixed task %q does not fit server %q", task.Name, server.Name)
	}
	return task.Allocate(server, price)
}
