package solver

import (
	"context"
	"math/rand"
	"time"

	"github.com/uber-go/tally"

	"github.com/stringtheorys/Flexible-Cloud-Resource/auction"
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/allocation"
)

// auctionSolver adapts the decentralised iterative auction to the solver
// registry.
type auctionSolver struct {
	auction *auction.Auction
}

// NewAuctionSolver seeds the bidding order and builds the auction with
// its reference pricing and allocation policies.
func NewAuctionSolver(cfg AuctionConfig, scope tally.Scope) (Solver, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	a, err := auction.NewAuction(
		auction.NewPriceResourcePerDeadline(),
		allocation.NewSumPercentage(),
		rand.New(rand.NewSource(seed)),
		scope,
	)
	if err != nil {
		return nil, err
	}
	return &auctionSolver{auction: a}, nil
}

// Name is the registry name, not the parameterised algorithm name kept
// in the result.
func (s *auctionSolver) Name() string {
	return DIA
}

// Solve is an implementation of Solver.Solve.
func (s *auctionSolver) Solve(ctx context.Context, tasks []*model.Task, servers []*model.Server) (*model.Result, error) {
	return s.auction.Run(ctx, tasks, servers)
}
