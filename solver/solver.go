package solver

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/valuedensity"
)

const (
	// Greedy is the registry name of the greedy allocator adapter.
	Greedy = "greedy"

	// DIA is the registry name of the decentralised iterative auction
	// adapter.
	DIA = "dia"

	// FixedGreedy is the registry name of the fixed speed greedy solver.
	FixedGreedy = "fixed_greedy"
)

// Solver runs one complete allocation pass over a clean model and reports
// the outcome. Implementations return the best known state when the
// context budget expires rather than an error.
type Solver interface {
	// Name returns the registry name of the solver.
	Name() string
	// Solve runs the algorithm within the context budget.
	Solve(ctx context.Context, tasks []*model.Task, servers []*model.Server) (*model.Result, error)
}

// FixedSolver is the Solver variant over tasks whose stage speeds were
// fixed ahead of placement.
type FixedSolver interface {
	// Name returns the registry name of the solver.
	Name() string
	// SolveFixed runs the algorithm within the context budget.
	SolveFixed(ctx context.Context, tasks []*model.FixedTask, servers []*model.Server) (*model.Result, error)
}

// GreedyConfig names the three policies of the greedy allocator.
type GreedyConfig struct {
	ValueDensity       string `yaml:"value_density" validate:"nonzero"`
	ServerSelection    string `yaml:"server_selection" validate:"nonzero"`
	ResourceAllocation string `yaml:"resource_allocation" validate:"nonzero"`
}

// AuctionConfig parameterises the decentralised iterative auction. The
// price fields are stamped onto the servers before a run; a zero seed
// draws the bidding order from the wall clock.
type AuctionConfig struct {
	Seed         int64   `yaml:"seed"`
	PriceChange  float64 `yaml:"price_change" validate:"min=0"`
	InitialPrice float64 `yaml:"initial_price" validate:"min=0"`
}

// map of solver name to Solver. Not thread-safe -> should be updated at
// initialization only; only reads are safe after initialization.
var solvers = make(map[string]Solver)

// Register keeps a solver in the registry under its name, refusing
// duplicates and nil solvers.
func Register(s Solver) error {
	if s == nil {
		return errors.New("cannot register a nil solver")
	}
	if _, registered := solvers[s.Name()]; registered {
		return errors.Errorf("solver %q already registered", s.Name())
	}
	log.WithField("name", s.Name()).Info("Registering solver")
	solvers[s.Name()] = s
	return nil
}

// Init builds and registers the solver adapters from their configs. The
// policy registries must be initialised first.
func Init(greedyCfg GreedyConfig, auctionCfg AuctionConfig, scope tally.Scope) error {
	greedy, err := NewGreedySolver(greedyCfg, scope)
	if err != nil {
		return errors.Wrap(err, "building the greedy solver")
	}
	if err := Register(greedy); err != nil {
		return err
	}

	auction, err := NewAuctionSolver(auctionCfg, scope)
	if err != nil {
		return errors.Wrap(err, "building the auction solver")
	}
	if err := Register(auction); err != nil {
		return err
	}

	fixed, err := NewFixedGreedySolver(
		valuedensity.GetDensityByName(greedyCfg.ValueDensity),
		model.SumPowerSpeeds{Power: 1},
		scope,
	)
	if err != nil {
		return errors.Wrap(err, "building the fixed greedy solver")
	}
	return Register(fixed)
}

// GetSolverByName returns a solver with specified name
func GetSolverByName(name string) Solver {
	return solvers[name]
}

// GetSolvers returns all registered solvers ordered by name
func GetSolvers() []Solver {
	result := make([]Solver, 0, len(solvers))
	for _, s := range solvers {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}
