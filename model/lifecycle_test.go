package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetModel(t *testing.T) {
	server := newTestServer(t, "server-0")
	task := newTestTask(t, "task-0")
	require.NoError(t, Allocate(task, 40, 50, 20, server))
	task.SetState(Committed)
	task.SetPrice(3)

	ResetModel([]*Task{task}, []*Server{server})
	assert.Equal(t, Unprocessed, task.State())
	assert.False(t, task.Allocated())
	assert.Equal(t, 0.0, task.Price())
	assert.Equal(t, 0, server.TaskCount())
	assert.Equal(t, server.Capacity(), server.Available())

	// Resetting twice in a row is equivalent to resetting once.
	ResetModel([]*Task{task}, []*Server{server})
	assert.Equal(t, Unprocessed, task.State())
	assert.Equal(t, server.Capacity(), server.Available())
	assert.NoError(t, CheckClean([]*Task{task}, []*Server{server}))
}

func TestResetFixedModel(t *testing.T) {
	server := newTestServer(t, "server-0")
	base := newTestTask(t, "task-0")
	fixed, err := NewFixedTask(base, SumPowerSpeeds{Power: 1}, []*Task{base}, server.Capacity())
	require.NoError(t, err)
	require.NoError(t, fixed.Allocate(server, 2))

	ResetFixedModel([]*FixedTask{fixed}, []*Server{server})
	assert.False(t, fixed.Allocated())
	assert.Equal(t, 0.0, fixed.Price())
	// Fixed speeds survive a reset.
	assert.Greater(t, fixed.LoadingSpeed, 0.0)
	assert.Equal(t, server.Capacity(), server.Available())
}

func TestCheckCleanFixed(t *testing.T) {
	server := newTestServer(t, "server-0")
	base := newTestTask(t, "task-0")
	fixed, err := NewFixedTask(base, SumPowerSpeeds{Power: 1}, []*Task{base}, server.Capacity())
	require.NoError(t, err)
	assert.NoError(t, CheckCleanFixed([]*FixedTask{fixed}, []*Server{server}))

	require.NoError(t, AllocateFixed(fixed, server, 1))
	err = CheckCleanFixed([]*FixedTask{fixed}, []*Server{server})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fixed-task-0")
	assert.Contains(t, err.Error(), "server-0")

	ResetFixedModel([]*FixedTask{fixed}, []*Server{server})
	assert.NoError(t, CheckCleanFixed([]*FixedTask{fixed}, []*Server{server}))
}

func TestCheckClean(t *testing.T) {
	server := newTestServer(t, "server-0")
	task := newTestTask(t, "task-0")
	assert.NoError(t, CheckClean([]*Task{task}, []*Server{server}))

	require.NoError(t, Allocate(task, 40, 50, 20, server))
	err := CheckClean([]*Task{task}, []*Server{server})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task-0")
	assert.Contains(t, err.Error(), "server-0")

	// A stale state without an allocation is still rejected.
	ResetModel([]*Task{task}, []*Server{server})
	task.SetState(Rejected)
	err = CheckClean([]*Task{task}, []*Server{server})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task-0")
}
