package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/goleak"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/allocation"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/selection"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/valuedensity"
	"github.com/stringtheorys/Flexible-Cloud-Resource/scalar"
)

func TestMain(m *testing.M) {
	valuedensity.Init()
	selection.Init()
	allocation.Init()
	goleak.VerifyTestMain(m)
}

func testGreedyConfig() GreedyConfig {
	return GreedyConfig{
		ValueDensity:       valuedensity.UtilityDeadlinePerResource,
		ServerSelection:    selection.SumResources,
		ResourceAllocation: allocation.SumPercentage,
	}
}

func testAuctionConfig() AuctionConfig {
	return AuctionConfig{Seed: 42, PriceChange: 1}
}

func newTask(t *testing.T, name string, storage, computation, resultsData, deadline, value float64) *model.Task {
	task, err := model.NewTask(name, storage, computation, resultsData, deadline, value)
	require.NoError(t, err)
	return task
}

func newServer(t *testing.T, name string, storage, computation, bandwidth float64) *model.Server {
	server, err := model.NewServer(name, storage, computation, bandwidth)
	require.NoError(t, err)
	return server
}

func TestInit_RegistersAllSolvers(t *testing.T) {
	solvers = make(map[string]Solver)

	require.NoError(t, Init(testGreedyConfig(), testAuctionConfig(), tally.NoopScope))

	all := GetSolvers()
	require.Len(t, all, 3)
	assert.Equal(t, DIA, all[0].Name())
	assert.Equal(t, FixedGreedy, all[1].Name())
	assert.Equal(t, Greedy, all[2].Name())

	assert.NotNil(t, GetSolverByName(Greedy))
	assert.Nil(t, GetSolverByName("simulated_annealing"))

	err := Init(testGreedyConfig(), testAuctionConfig(), tally.NoopScope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestInit_UnknownPolicy(t *testing.T) {
	solvers = make(map[string]Solver)

	cfg := testGreedyConfig()
	cfg.ValueDensity = "NOT_A_DENSITY"
	err := Init(cfg, testAuctionConfig(), tally.NoopScope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown value density")

	cfg = testGreedyConfig()
	cfg.ServerSelection = "NOT_A_SELECTION"
	err = Init(cfg, testAuctionConfig(), tally.NoopScope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown server selection policy")
}

func TestRegister_RefusesNil(t *testing.T) {
	assert.Error(t, Register(nil))
}

func TestGreedySolver_Solve(t *testing.T) {
	s, err := NewGreedySolver(testGreedyConfig(), tally.NoopScope)
	require.NoError(t, err)
	assert.Equal(t, Greedy, s.Name())

	tasks := []*model.Task{
		newTask(t, "task-0", 40, 40, 20, 10, 5),
		newTask(t, "task-1", 40, 40, 20, 10, 5),
	}
	servers := []*model.Server{newServer(t, "server-0", 100, 100, 100)}

	result, err := s.Solve(context.Background(), tasks, servers)
	require.NoError(t, err)
	assert.Equal(t, "GREEDY(UTILITY_DEADLINE_PER_RESOURCE, SUM_RESOURCES, SUM_PERCENTAGE)", result.Algorithm)
	assert.Equal(t, 2, result.TasksCommitted)
	assert.InDelta(t, 10.0, result.SocialWelfare, 1e-9)
}

func TestAuctionSolver_Solve(t *testing.T) {
	s, err := NewAuctionSolver(testAuctionConfig(), tally.NoopScope)
	require.NoError(t, err)
	assert.Equal(t, DIA, s.Name())

	task := newTask(t, "task-0", 40, 40, 20, 10, 5)
	servers := []*model.Server{newServer(t, "server-0", 100, 100, 100)}

	result, err := s.Solve(context.Background(), []*model.Task{task}, servers)
	require.NoError(t, err)
	assert.Equal(t, "DIA(PRICE_RESOURCE_PER_DEADLINE, SUM_PERCENTAGE)", result.Algorithm)
	assert.Equal(t, 1, result.Rounds)
	assert.InDelta(t, 5.0, result.SocialWelfare, 1e-9)
	assert.InDelta(t, 1.0, task.Price(), 1e-9)
	assert.InDelta(t, 1.0, result.TotalRevenue, 1e-9)
}

func TestFixedGreedySolver_Solve(t *testing.T) {
	s, err := NewFixedGreedySolver(
		valuedensity.GetDensityByName(valuedensity.UtilityDeadlinePerResource),
		model.SumPowerSpeeds{Power: 1},
		tally.NoopScope,
	)
	require.NoError(t, err)
	assert.Equal(t, FixedGreedy, s.Name())

	tasks := []*model.Task{
		newTask(t, "task-0", 40, 40, 20, 10, 5),
		newTask(t, "task-1", 40, 40, 20, 10, 5),
	}
	server := newServer(t, "server-0", 100, 100, 100)

	result, err := s.Solve(context.Background(), tasks, []*model.Server{server})
	require.NoError(t, err)
	assert.Equal(t, "FIXED_GREEDY(UTILITY_DEADLINE_PER_RESOURCE, sum-power-speeds)", result.Algorithm)
	assert.Equal(t, 2, result.TasksCommitted)
	assert.InDelta(t, 10.0, result.SocialWelfare, 1e-9)

	// Both fixed views draw (40, 50, 50) from the server.
	available := server.Available()
	assert.InDelta(t, 20.0, available.Storage, 1e-9)
	assert.InDelta(t, 0.0, available.Computation, 1e-9)
	assert.InDelta(t, 0.0, available.Bandwidth, 1e-9)

	// The originals only lend their requirements, they are never placed.
	for _, task := range tasks {
		assert.False(t, task.Allocated())
		assert.Equal(t, model.Unprocessed, task.State())
	}
}

func TestFixedGreedySolver_DeadlineInfeasible(t *testing.T) {
	s, err := NewFixedGreedySolver(
		valuedensity.GetDensityByName(valuedensity.UtilityDeadlinePerResource),
		model.SumPowerSpeeds{Power: 1},
		tally.NoopScope,
	)
	require.NoError(t, err)

	// Two tasks sharing one server complete at 3.2, past the deadline of 2.
	tasks := []*model.Task{
		newTask(t, "task-0", 40, 40, 20, 2, 5),
		newTask(t, "task-1", 40, 40, 20, 2, 5),
	}
	server := newServer(t, "server-0", 100, 100, 100)

	result, err := s.Solve(context.Background(), tasks, []*model.Server{server})
	require.NoError(t, err)
	assert.Zero(t, result.TasksCommitted)
	assert.Zero(t, result.SocialWelfare)
	assert.Equal(t, server.Capacity(), server.Available())
}

func TestFixedGreedySolver_PrefersRoomiestServer(t *testing.T) {
	s, err := NewFixedGreedySolver(
		valuedensity.GetDensityByName(valuedensity.UtilityDeadlinePerResource),
		model.SumPowerSpeeds{Power: 1},
		tally.NoopScope,
	)
	require.NoError(t, err)

	tasks := []*model.Task{
		newTask(t, "task-0", 40, 40, 20, 10, 5),
		newTask(t, "task-1", 40, 40, 20, 10, 5),
	}
	pool := scalar.Resources{Storage: 100, Computation: 100, Bandwidth: 100}
	fixed := make([]*model.FixedTask, 0, len(tasks))
	for _, task := range tasks {
		ft, err := model.NewFixedTask(task, model.SumPowerSpeeds{Power: 1}, tasks, pool)
		require.NoError(t, err)
		fixed = append(fixed, ft)
	}

	small := newServer(t, "small", 100, 100, 100)
	big := newServer(t, "big", 120, 120, 120)

	result, err := s.SolveFixed(context.Background(), fixed, []*model.Server{small, big})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TasksCommitted)

	// The first placement lands on the larger server, after which the
	// untouched one has more headroom.
	assert.Equal(t, big, fixed[0].Server())
	assert.Equal(t, small, fixed[1].Server())
}

func TestFixedGreedySolver_StaleStateFails(t *testing.T) {
	s, err := NewFixedGreedySolver(
		valuedensity.GetDensityByName(valuedensity.UtilityDeadlinePerResource),
		model.SumPowerSpeeds{Power: 1},
		tally.NoopScope,
	)
	require.NoError(t, err)

	tasks := []*model.Task{newTask(t, "task-0", 40, 40, 20, 10, 5)}
	servers := []*model.Server{newServer(t, "server-0", 100, 100, 100)}

	fixed, err := model.NewFixedTasks(tasks, model.SumPowerSpeeds{Power: 1}, servers)
	require.NoError(t, err)

	_, err = s.SolveFixed(context.Background(), fixed, servers)
	require.NoError(t, err)

	_, err = s.SolveFixed(context.Background(), fixed, servers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset")

	model.ResetFixedModel(fixed, servers)
	_, err = s.SolveFixed(context.Background(), fixed, servers)
	assert.NoError(t, err)
}

func TestVerify(t *testing.T) {
	s, err := NewGreedySolver(testGreedyConfig(), tally.NoopScope)
	require.NoError(t, err)

	tasks := []*model.Task{
		newTask(t, "task-0", 40, 40, 20, 10, 5),
		newTask(t, "task-1", 40, 40, 20, 10, 5),
	}
	servers := []*model.Server{newServer(t, "server-0", 100, 100, 100)}

	result, err := s.Solve(context.Background(), tasks, servers)
	require.NoError(t, err)
	assert.True(t, Verify(result, tasks, servers))

	welfare := result.SocialWelfare
	result.SocialWelfare = welfare + 1
	assert.False(t, Verify(result, tasks, servers))
	result.SocialWelfare = welfare

	result.ServerUtilisation["server-0"] = scalar.Resources{}
	assert.False(t, Verify(result, tasks, servers))
}

func TestValidateSolution(t *testing.T) {
	s, err := NewGreedySolver(testGreedyConfig(), tally.NoopScope)
	require.NoError(t, err)

	tasks := []*model.Task{
		newTask(t, "task-0", 40, 40, 20, 10, 5),
		newTask(t, "task-1", 40, 40, 20, 10, 5),
	}
	servers := []*model.Server{newServer(t, "server-0", 100, 100, 100)}

	_, err = s.Solve(context.Background(), tasks, servers)
	require.NoError(t, err)
	assert.NoError(t, ValidateSolution(tasks, servers))

	model.ResetModel(tasks, servers)

	tasks[0].SetState(model.Committed)
	err = ValidateSolution(tasks, servers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds no server")
	tasks[0].SetState(model.Unprocessed)

	// Speeds of 1 stretch the run to 100 time units against a deadline of 10.
	require.NoError(t, model.Allocate(tasks[1], 1, 1, 1, servers[0]))
	tasks[1].SetState(model.Committed)
	err = ValidateSolution(tasks, servers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "past its deadline")
}
