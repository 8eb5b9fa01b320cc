package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResult(t *testing.T) {
	server := newTestServer(t, "server-0")
	committed := newTestTask(t, "task-0")
	rejected := newTestTask(t, "task-1")

	require.NoError(t, Allocate(committed, 40, 50, 20, server))
	committed.SetState(Committed)
	rejected.SetState(Rejected)

	result := NewResult("greedy", []*Task{committed, rejected}, []*Server{server}, 2*time.Millisecond, false)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "greedy", result.Algorithm)
	assert.InDelta(t, 5.0, result.SocialWelfare, 1e-9)
	assert.InDelta(t, 0.5, result.PercentageSocialWelfare, 1e-9)
	assert.InDelta(t, 0.5, result.PercentageTasksAllocated, 1e-9)
	assert.Equal(t, 2, result.TasksTotal)
	assert.Equal(t, 1, result.TasksCommitted)
	assert.Equal(t, 2*time.Millisecond, result.SolveTime)
	assert.False(t, result.Optimal)

	utilisation, found := result.ServerUtilisation["server-0"]
	require.True(t, found)
	assert.InDelta(t, 0.4, utilisation.Storage, 1e-9)
	assert.InDelta(t, 0.5, utilisation.Computation, 1e-9)
	assert.InDelta(t, 0.6, utilisation.Bandwidth, 1e-9)
}

func TestNewResult_DeadlineInfeasibleExcluded(t *testing.T) {
	server := newTestServer(t, "server-0")
	task := newTestTask(t, "task-0")
	// Bound to a server but too slow for its deadline: no welfare.
	require.NoError(t, Allocate(task, 1, 1, 1, server))

	result := NewResult("greedy", []*Task{task}, []*Server{server}, time.Millisecond, false)
	assert.Equal(t, 0.0, result.SocialWelfare)
	assert.Equal(t, 0, result.TasksCommitted)
}

func TestNewFixedResult(t *testing.T) {
	server := newTestServer(t, "server-0")
	placed := newTestTask(t, "task-0")
	unplaced := newTestTask(t, "task-1")

	fixed, err := NewFixedTasks([]*Task{placed, unplaced}, SumPowerSpeeds{Power: 1}, []*Server{server})
	require.NoError(t, err)
	require.NoError(t, AllocateFixed(fixed[0], server, 1))

	result := NewFixedResult("fixed", fixed, []*Server{server}, time.Millisecond, false)
	assert.Equal(t, "fixed", result.Algorithm)
	assert.InDelta(t, 5.0, result.SocialWelfare, 1e-9)
	assert.InDelta(t, 0.5, result.PercentageSocialWelfare, 1e-9)
	assert.Equal(t, 1, result.TasksCommitted)
	assert.Equal(t, 2, result.TasksTotal)

	// The reservation of the placed fixed task shows up as utilisation.
	utilisation, found := result.ServerUtilisation["server-0"]
	require.True(t, found)
	assert.InDelta(t, 0.4, utilisation.Storage, 1e-9)
	assert.InDelta(t, 0.5, utilisation.Computation, 1e-9)
	assert.InDelta(t, 0.5, utilisation.Bandwidth, 1e-9)
}

func TestResult_SetReferenceWelfare(t *testing.T) {
	server := newTestServer(t, "server-0")
	task := newTestTask(t, "task-0")
	require.NoError(t, Allocate(task, 40, 50, 20, server))

	result := NewResult("greedy", []*Task{task}, []*Server{server}, time.Millisecond, false)
	assert.InDelta(t, 1.0, result.PercentageSocialWelfare, 1e-9)

	result.SetReferenceWelfare(20)
	assert.InDelta(t, 0.25, result.PercentageSocialWelfare, 1e-9)

	// Non-positive references are ignored.
	result.SetReferenceWelfare(0)
	assert.InDelta(t, 0.25, result.PercentageSocialWelfare, 1e-9)
}
