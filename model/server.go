package model

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/stringtheorys/Flexible-Cloud-Resource/scalar"
)

// Server is a resource bounded execution node. Storage is consumed as an
// amount by every resident task, computation and bandwidth are consumed as
// rates, with loading and sending sharing the single bandwidth pool.
type Server struct {
	Name string

	// PriceChange is the profit margin a server adds on top of the revenue
	// it gives up when quoting a price in the iterative auction.
	PriceChange float64
	// InitialPrice is the lowest price the server will quote.
	InitialPrice float64

	capacity  scalar.Resources
	available scalar.Resources
	allocated []*Task
}

// NewServer creates a server and fails fast on non-positive capacities.
func NewServer(name string, storage, computation, bandwidth float64) (*Server, error) {
	var err error
	if name == "" {
		err = multierr.Append(err, errors.New("server name is empty"))
	}
	if storage <= 0 {
		err = multierr.Append(err, errors.Errorf("server %q storage capacity %f must be positive", name, storage))
	}
	if computation <= 0 {
		err = multierr.Append(err, errors.Errorf("server %q computation capacity %f must be positive", name, computation))
	}
	if bandwidth <= 0 {
		err = multierr.Append(err, errors.Errorf("server %q bandwidth capacity %f must be positive", name, bandwidth))
	}
	if err != nil {
		return nil, err
	}
	capacity := scalar.Resources{
		Storage:     storage,
		Computation: computation,
		Bandwidth:   bandwidth,
	}
	return &Server{
		Name:        name,
		PriceChange: 1,
		capacity:    capacity,
		available:   capacity,
	}, nil
}

// Capacity will return the fixed resource capacities of the server.
func (s *Server) Capacity() scalar.Resources {
	return s.capacity
}

// Available will return the resources left after the consumption of every
// resident task.
func (s *Server) Available() scalar.Resources {
	return s.available
}

// Tasks will return the tasks currently allocated to the server.
func (s *Server) Tasks() []*Task {
	tasks := make([]*Task, len(s.allocated))
	copy(tasks, s.allocated)
	return tasks
}

// TaskCount will return the number of tasks currently allocated.
func (s *Server) TaskCount() int {
	return len(s.allocated)
}

// Revenue will return the sum of the prices of the resident tasks.
func (s *Server) Revenue() float64 {
	revenue := 0.0
	for _, task := range s.allocated {
		revenue += task.Price()
	}
	return revenue
}

// CanRun determines whether any positive stage speeds could finish the
// task by its deadline on this server. Storage is an amount, so the
// remaining storage must hold the task; the speed pools are checked at
// full capacity because committing a plan re-proportions every resident
// task from the whole pool. The fastest possible completion splits the
// bandwidth B between loading and sending, and min over l+s<=B of
// S/l + R/s is (sqrt(S)+sqrt(R))^2 / B, on top of C over computation.
func (s *Server) CanRun(task *Task) bool {
	if task.RequiredStorage > s.available.Storage+scalar.Epsilon {
		return false
	}
	transfer := math.Sqrt(task.RequiredStorage) + math.Sqrt(task.RequiredResultsData)
	fastest := transfer*transfer/s.capacity.Bandwidth +
		task.RequiredComputation/s.capacity.Computation
	return fastest <= task.Deadline+scalar.Epsilon
}

// SpeedAssignment is one row of a resource allocation plan: the stage speeds
// a task receives once the plan is committed.
type SpeedAssignment struct {
	Task    *Task
	Loading float64
	Compute float64
	Sending float64
}

// Usage will return the resources the assignment consumes on the server.
func (a SpeedAssignment) Usage() scalar.Resources {
	return scalar.Resources{
		Storage:     a.Task.RequiredStorage,
		Computation: a.Compute,
		Bandwidth:   a.Loading + a.Sending,
	}
}

// Commit applies a full resource allocation plan: the new task is admitted
// and every resident task is re-proportioned to its planned speeds. The plan
// must cover exactly the resident tasks plus the new one and must fit the
// capacities; nothing is mutated when validation fails.
func (s *Server) Commit(task *Task, assignments []SpeedAssignment) error {
	if task == nil {
		return errors.New("commit requires a task")
	}
	if task.Allocated() {
		return errors.Errorf("task %q is already allocated to server %q", task.Name, task.Server().Name)
	}
	if len(assignments) != len(s.allocated)+1 {
		return errors.Errorf("plan for server %q covers %d tasks, want %d",
			s.Name, len(assignments), len(s.allocated)+1)
	}

	resident := make(map[*Task]bool, len(s.allocated))
	for _, t := range s.allocated {
		resident[t] = true
	}
	var used scalar.Resources
	foundNew := false
	for _, a := range assignments {
		if a.Task == task {
			foundNew = true
		} else if !resident[a.Task] {
			return errors.Errorf("plan for server %q includes foreign task %q", s.Name, a.Task.Name)
		}
		if a.Loading <= 0 || a.Compute <= 0 || a.Sending <= 0 {
			return errors.Errorf("plan for server %q gives task %q non-positive speeds (%f, %f, %f)",
				s.Name, a.Task.Name, a.Loading, a.Compute, a.Sending)
		}
		used = used.Add(a.Usage())
	}
	if !foundNew {
		return errors.Errorf("plan for server %q does not include task %q", s.Name, task.Name)
	}
	if !s.capacity.Contains(used) {
		return errors.Errorf("plan for server %q uses %+v, over capacity %+v", s.Name, used, s.capacity)
	}

	for _, a := range assignments {
		var err error
		if a.Task == task {
			err = a.Task.Allocate(a.Loading, a.Compute, a.Sending, s)
		} else {
			err = a.Task.UpdateSpeeds(a.Loading, a.Compute, a.Sending)
		}
		if err != nil {
			return errors.Wrapf(err, "applying plan on server %q", s.Name)
		}
	}
	s.allocated = append(s.allocated, task)
	s.refreshAvailable()
	return nil
}

// allocateTask admits a task whose speeds are already bound to this server,
// deducting its usage from the remaining capacities.
func (s *Server) allocateTask(task *Task) error {
	if task.Server() != s {
		return errors.Errorf("task %q is not bound to server %q", task.Name, s.Name)
	}
	remaining, ok := s.available.TrySubtract(task.Usage())
	if !ok {
		return errors.Errorf("task %q usage %+v exceeds server %q available %+v",
			task.Name, task.Usage(), s.Name, s.available)
	}
	s.available = remaining
	s.allocated = append(s.allocated, task)
	return nil
}

// Reserve deducts a usage from the remaining capacities without binding a
// task. Fixed tasks are not tracked in the allocated set, so a reservation
// is released by ResetAllocations only. Commit recomputes availability from
// the resident tasks alone and must not be mixed with reservations on the
// same server.
func (s *Server) Reserve(usage scalar.Resources) error {
	remaining, ok := s.available.TrySubtract(usage)
	if !ok {
		return errors.Errorf("usage %+v exceeds server %q available %+v", usage, s.Name, s.available)
	}
	s.available = remaining
	return nil
}

// ResetAllocations clears the allocated task set and restores the full
// capacities. Idempotent. The tasks themselves are left untouched; use
// ResetModel to clear both sides consistently.
func (s *Server) ResetAllocations() {
	s.allocated = s.allocated[:0]
	s.available = s.capacity
}

// Utilisation will return the fraction of each capacity dimension consumed
// by the resident tasks.
func (s *Server) Utilisation() scalar.Resources {
	used := s.capacity.Subtract(s.available)
	return scalar.Resources{
		Storage:     used.Storage / s.capacity.Storage,
		Computation: used.Computation / s.capacity.Computation,
		Bandwidth:   used.Bandwidth / s.capacity.Bandwidth,
	}
}

func (s *Server) refreshAvailable() {
	used := scalar.Resources{}
	for _, task := range s.allocated {
		used = used.Add(task.Usage())
	}
	s.available = s.capacity.Subtract(used)
}

// Allocate binds a task to a server with the given speeds and deducts its
// usage, keeping both sides of the relation consistent.
func Allocate(task *Task, loading, compute, sending float64, server *Server) error {
	if err := task.Allocate(loading, compute, sending, server); err != nil {
		return err
	}
	if err := server.allocateTask(task); err != nil {
		task.ResetAllocation(false)
		return err
	}
	return nil
}
