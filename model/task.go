package model

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/stringtheorys/Flexible-Cloud-Resource/scalar"
)

// AllocationState tracks how far through the allocation pass a task has come.
type AllocationState int

const (
	// Unprocessed means the allocator has not visited the task yet.
	Unprocessed AllocationState = iota
	// CandidateSelected means feasible servers were found but no plan has
	// been committed yet.
	CandidateSelected
	// Committed means the task is allocated to a server with final speeds.
	Committed
	// Rejected means no server could run the task within its deadline.
	Rejected
)

func (s AllocationState) String() string {
	switch s {
	case Unprocessed:
		return "unprocessed"
	case CandidateSelected:
		return "candidate-selected"
	case Committed:
		return "committed"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("unknown-%d", int(s))
}

// Task is a unit of work that must load its data onto a server, compute and
// send the results back out, all before its deadline. The demand fields are
// fixed at construction; the allocation state is mutated by an allocator and
// cleared by ResetModel between runs.
type Task struct {
	Name string

	// RequiredStorage is the amount of data loaded onto the server and held
	// for the lifetime of the task.
	RequiredStorage float64
	// RequiredComputation is the total computation units the task consumes.
	RequiredComputation float64
	// RequiredResultsData is the amount of result data sent back out.
	RequiredResultsData float64
	// Deadline is the time budget for all three stages together.
	Deadline float64
	// Value is the utility gained when the task completes by its deadline.
	Value float64

	state        AllocationState
	loadingSpeed float64
	computeSpeed float64
	sendingSpeed float64
	server       *Server
	price        float64
}

// NewTask creates a task and fails fast on non-positive demand fields.
func NewTask(name string, storage, computation, resultsData, deadline, value float64) (*Task, error) {
	var err error
	if name == "" {
		err = multierr.Append(err, errors.New("task name is empty"))
	}
	if storage <= 0 {
		err = multierr.Append(err, errors.Errorf("task %q required storage %f must be positive", name, storage))
	}
	if computation <= 0 {
		err = multierr.Append(err, errors.Errorf("task %q required computation %f must be positive", name, computation))
	}
	if resultsData <= 0 {
		err = multierr.Append(err, errors.Errorf("task %q required results data %f must be positive", name, resultsData))
	}
	if deadline <= 0 {
		err = multierr.Append(err, errors.Errorf("task %q deadline %f must be positive", name, deadline))
	}
	if value <= 0 {
		err = multierr.Append(err, errors.Errorf("task %q value %f must be positive", name, value))
	}
	if err != nil {
		return nil, err
	}
	return &Task{
		Name:                name,
		RequiredStorage:     storage,
		RequiredComputation: computation,
		RequiredResultsData: resultsData,
		Deadline:            deadline,
		Value:               value,
	}, nil
}

// State will return the allocation state of the task.
func (t *Task) State() AllocationState {
	return t.state
}

// SetState moves the task to the given allocation state.
func (t *Task) SetState(state AllocationState) {
	t.state = state
}

// LoadingSpeed will return the assigned loading speed, zero when unassigned.
func (t *Task) LoadingSpeed() float64 {
	return t.loadingSpeed
}

// ComputeSpeed will return the assigned compute speed, zero when unassigned.
func (t *Task) ComputeSpeed() float64 {
	return t.computeSpeed
}

// SendingSpeed will return the assigned sending speed, zero when unassigned.
func (t *Task) SendingSpeed() float64 {
	return t.sendingSpeed
}

// Server will return the server the task runs on, nil when unassigned.
func (t *Task) Server() *Server {
	return t.server
}

// Price will return the price the task pays in an auction, zero otherwise.
func (t *Task) Price() float64 {
	return t.price
}

// SetPrice sets the auction price of the task.
func (t *Task) SetPrice(price float64) {
	t.price = price
}

// Allocated returns true iff the task is bound to a server.
func (t *Task) Allocated() bool {
	return t.server != nil
}

// Allocate binds the task to a server with the given stage speeds. The task
// must be fully unassigned; carrying state from a previous run is a caller
// bug surfaced as an error.
func (t *Task) Allocate(loading, compute, sending float64, server *Server) error {
	if t.server != nil {
		return errors.Errorf("task %q is already allocated to server %q", t.Name, t.server.Name)
	}
	if loading <= 0 || compute <= 0 || sending <= 0 {
		return errors.Errorf("task %q allocation speeds (%f, %f, %f) must be positive",
			t.Name, loading, compute, sending)
	}
	t.loadingSpeed = loading
	t.computeSpeed = compute
	t.sendingSpeed = sending
	t.server = server
	return nil
}

// UpdateSpeeds re-proportions the stage speeds of an already allocated task.
// Used when admitting another task to the same server shrinks the shares of
// the tasks before it.
func (t *Task) UpdateSpeeds(loading, compute, sending float64) error {
	if t.server == nil {
		return errors.Errorf("task %q is not allocated, cannot update speeds", t.Name)
	}
	if loading <= 0 || compute <= 0 || sending <= 0 {
		return errors.Errorf("task %q updated speeds (%f, %f, %f) must be positive",
			t.Name, loading, compute, sending)
	}
	t.loadingSpeed = loading
	t.computeSpeed = compute
	t.sendingSpeed = sending
	return nil
}

// ResetAllocation clears the mutable allocation state. Idempotent. The price
// survives when forgetPrice is false, which the auction relies on while
// repacking a server.
func (t *Task) ResetAllocation(forgetPrice bool) {
	t.loadingSpeed = 0
	t.computeSpeed = 0
	t.sendingSpeed = 0
	t.server = nil
	t.state = Unprocessed
	if forgetPrice {
		t.price = 0
	}
}

// LoadingTime will return the duration of the loading stage at the assigned
// speed, +Inf when unassigned.
func (t *Task) LoadingTime() float64 {
	return t.RequiredStorage / t.loadingSpeed
}

// ComputeTime will return the duration of the compute stage at the assigned
// speed, +Inf when unassigned.
func (t *Task) ComputeTime() float64 {
	return t.RequiredComputation / t.computeSpeed
}

// SendingTime will return the duration of the sending stage at the assigned
// speed, +Inf when unassigned.
func (t *Task) SendingTime() float64 {
	return t.RequiredResultsData / t.sendingSpeed
}

// CompletionTime will return the end-to-end duration of the three sequential
// stages.
func (t *Task) CompletionTime() float64 {
	return t.LoadingTime() + t.ComputeTime() + t.SendingTime()
}

// WithinDeadline returns true iff the stage durations at the assigned speeds
// fit the deadline within floating point tolerance.
func (t *Task) WithinDeadline() bool {
	return t.CompletionTime() <= t.Deadline+scalar.Epsilon
}

// Usage will return the amounts the task consumes on its server: the stored
// data amount, the computation rate and the bandwidth rate shared by the
// loading and sending stages.
func (t *Task) Usage() scalar.Resources {
	return scalar.Resources{
		Storage:     t.RequiredStorage,
		Computation: t.computeSpeed,
		Bandwidth:   t.loadingSpeed + t.sendingSpeed,
	}
}

// RequirementsSum will return the sum of the three demand fields.
func (t *Task) RequirementsSum() float64 {
	return t.RequiredStorage + t.RequiredComputation + t.RequiredResultsData
}
