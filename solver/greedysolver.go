package solver

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uber-go/tally"

	"github.com/stringtheorys/Flexible-Cloud-Resource/greedy"
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/allocation"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/selection"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/valuedensity"
)

// greedySolver adapts the greedy allocator to the solver registry.
type greedySolver struct {
	allocator *greedy.Allocator
}

// NewGreedySolver looks the three policies up by name and builds the
// allocator around them.
func NewGreedySolver(cfg GreedyConfig, scope tally.Scope) (Solver, error) {
	density := valuedensity.GetDensityByName(cfg.ValueDensity)
	if density == nil {
		return nil, errors.Errorf("unknown value density %q", cfg.ValueDensity)
	}
	selectionPolicy := selection.GetPolicyByName(cfg.ServerSelection)
	if selectionPolicy == nil {
		return nil, errors.Errorf("unknown server selection policy %q", cfg.ServerSelection)
	}
	allocationPolicy := allocation.GetPolicyByName(cfg.ResourceAllocation)
	if allocationPolicy == nil {
		return nil, errors.Errorf("unknown resource allocation policy %q", cfg.ResourceAllocation)
	}
	allocator, err := greedy.NewAllocator(density, selectionPolicy, allocationPolicy, scope)
	if err != nil {
		return nil, err
	}
	return &greedySolver{allocator: allocator}, nil
}

// Name is the registry name, not the parameterised algorithm name kept
// in the result.
func (s *greedySolver) Name() string {
	return Greedy
}

// Solve is an implementation of Solver.Solve.
func (s *greedySolver) Solve(ctx context.Context, tasks []*model.Task, servers []*model.Server) (*model.Result, error) {
	return s.allocator.Run(ctx, tasks, servers)
}
