package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stringtheorys/Flexible-Cloud-Resource/scalar"
)

func TestNewServer_Validation(t *testing.T) {
	server, err := NewServer("server-0", 100, 200, 300)
	require.NoError(t, err)
	assert.Equal(t, scalar.Resources{Storage: 100, Computation: 200, Bandwidth: 300}, server.Capacity())
	assert.Equal(t, server.Capacity(), server.Available())
	assert.Equal(t, 1.0, server.PriceChange)
	assert.Equal(t, 0, server.TaskCount())

	_, err = NewServer("", 100, 200, 300)
	assert.Error(t, err)

	_, err = NewServer("server-0", 0, 200, 300)
	assert.Error(t, err)

	_, err = NewServer("server-0", 100, -5, 300)
	assert.Error(t, err)

	_, err = NewServer("server-0", 100, 200, 0)
	assert.Error(t, err)
}

func TestServer_CanRun(t *testing.T) {
	server := newTestServer(t, "server-0")

	ok, err := NewTask("task-0", 40, 40, 20, 10, 5)
	require.NoError(t, err)
	assert.True(t, server.CanRun(ok))

	// Storage demand above capacity is infeasible regardless of deadline.
	oversized, err := NewTask("task-1", 200, 40, 20, 1000, 5)
	require.NoError(t, err)
	assert.False(t, server.CanRun(oversized))

	// (sqrt(40)+sqrt(20))^2/100 + 40/100 is about 1.57, so a deadline of
	// 1.5 is out of reach even with every resource dedicated to the task.
	urgent, err := NewTask("task-2", 40, 40, 20, 1.5, 5)
	require.NoError(t, err)
	assert.False(t, server.CanRun(urgent))

	relaxed, err := NewTask("task-3", 40, 40, 20, 1.6, 5)
	require.NoError(t, err)
	assert.True(t, server.CanRun(relaxed))
}

func TestServer_CanRunOccupied(t *testing.T) {
	server := newTestServer(t, "server-0")
	resident := newTestTask(t, "task-0")
	require.NoError(t, Allocate(resident, 50, 80, 30, server))

	// Only storage consumption counts against a newcomer: the speed
	// pools are re-proportioned from full capacity on every commit.
	fits, err := NewTask("task-1", 10, 10, 5, 10, 1)
	require.NoError(t, err)
	assert.True(t, server.CanRun(fits))

	noStorage, err := NewTask("task-2", 70, 10, 5, 10, 1)
	require.NoError(t, err)
	assert.False(t, server.CanRun(noStorage))

	// (sqrt(10)+sqrt(5))^2/100 + 10/100 is about 0.39.
	noTime, err := NewTask("task-3", 10, 10, 5, 0.3, 1)
	require.NoError(t, err)
	assert.False(t, server.CanRun(noTime))
}

func TestServer_Commit(t *testing.T) {
	server := newTestServer(t, "server-0")
	first := newTestTask(t, "task-0")
	second := newTestTask(t, "task-1")

	// Alone on the server the first task receives the full pools.
	require.NoError(t, server.Commit(first, []SpeedAssignment{
		{Task: first, Loading: 100.0 * 40 / 60, Compute: 100, Sending: 100.0 * 20 / 60},
	}))
	assert.Equal(t, 1, server.TaskCount())
	assert.True(t, first.Allocated())
	assert.InDelta(t, 60.0, server.Available().Storage, 1e-9)
	assert.InDelta(t, 0.0, server.Available().Computation, 1e-9)
	assert.InDelta(t, 0.0, server.Available().Bandwidth, 1e-9)

	// Admitting the second task shrinks the first task's shares.
	require.NoError(t, server.Commit(second, []SpeedAssignment{
		{Task: first, Loading: 100.0 / 3, Compute: 50, Sending: 100.0 / 6},
		{Task: second, Loading: 100.0 / 3, Compute: 50, Sending: 100.0 / 6},
	}))
	assert.Equal(t, 2, server.TaskCount())
	assert.InDelta(t, 50.0, first.ComputeSpeed(), 1e-9)
	assert.InDelta(t, 50.0, second.ComputeSpeed(), 1e-9)
	assert.InDelta(t, 20.0, server.Available().Storage, 1e-9)
	assert.InDelta(t, 0.0, server.Available().Computation, 1e-9)
	assert.InDelta(t, 0.0, server.Available().Bandwidth, 1e-9)
	assert.True(t, first.WithinDeadline())
	assert.True(t, second.WithinDeadline())
}

func TestServer_CommitValidation(t *testing.T) {
	server := newTestServer(t, "server-0")
	task := newTestTask(t, "task-0")
	stranger := newTestTask(t, "task-1")

	// The plan must cover exactly the resident tasks plus the new one.
	assert.Error(t, server.Commit(task, nil))
	assert.Error(t, server.Commit(task, []SpeedAssignment{
		{Task: stranger, Loading: 10, Compute: 10, Sending: 10},
	}))

	// Over capacity plans are refused before any mutation.
	assert.Error(t, server.Commit(task, []SpeedAssignment{
		{Task: task, Loading: 80, Compute: 150, Sending: 20},
	}))
	assert.False(t, task.Allocated())
	assert.Equal(t, server.Capacity(), server.Available())

	assert.Error(t, server.Commit(task, []SpeedAssignment{
		{Task: task, Loading: 0, Compute: 10, Sending: 10},
	}))

	require.NoError(t, server.Commit(task, []SpeedAssignment{
		{Task: task, Loading: 40, Compute: 40, Sending: 20},
	}))
	// Re-committing an allocated task is a caller bug.
	assert.Error(t, server.Commit(task, []SpeedAssignment{
		{Task: task, Loading: 40, Compute: 40, Sending: 20},
	}))
}

func TestServer_ResetAllocations(t *testing.T) {
	server := newTestServer(t, "server-0")
	task := newTestTask(t, "task-0")
	require.NoError(t, Allocate(task, 40, 50, 20, server))
	assert.Equal(t, 1, server.TaskCount())

	server.ResetAllocations()
	assert.Equal(t, 0, server.TaskCount())
	assert.Equal(t, server.Capacity(), server.Available())

	// Idempotent.
	server.ResetAllocations()
	assert.Equal(t, 0, server.TaskCount())
}

func TestServer_Reserve(t *testing.T) {
	server := newTestServer(t, "server-0")
	require.NoError(t, server.Reserve(scalar.Resources{Storage: 40, Computation: 50, Bandwidth: 50}))
	assert.InDelta(t, 60.0, server.Available().Storage, 1e-9)
	assert.InDelta(t, 50.0, server.Available().Computation, 1e-9)

	// An oversized reservation fails without touching the availability.
	err := server.Reserve(scalar.Resources{Storage: 70, Computation: 10, Bandwidth: 10})
	require.Error(t, err)
	assert.InDelta(t, 60.0, server.Available().Storage, 1e-9)

	server.ResetAllocations()
	assert.Equal(t, server.Capacity(), server.Available())
}

func TestServer_Revenue(t *testing.T) {
	server := newTestServer(t, "server-0")
	assert.Equal(t, 0.0, server.Revenue())

	first := newTestTask(t, "task-0")
	second := newTestTask(t, "task-1")
	require.NoError(t, Allocate(first, 10, 10, 10, server))
	require.NoError(t, Allocate(second, 10, 10, 10, server))
	first.SetPrice(3)
	second.SetPrice(4.5)
	assert.InDelta(t, 7.5, server.Revenue(), 1e-9)
}

func TestServer_Utilisation(t *testing.T) {
	server := newTestServer(t, "server-0")
	task := newTestTask(t, "task-0")
	require.NoError(t, Allocate(task, 30, 50, 20, server))

	utilisation := server.Utilisation()
	assert.InDelta(t, 0.4, utilisation.Storage, 1e-9)
	assert.InDelta(t, 0.5, utilisation.Computation, 1e-9)
	assert.InDelta(t, 0.5, utilisation.Bandwidth, 1e-9)
}

func TestAllocate_Helper(t *testing.T) {
	server := newTestServer(t, "server-0")
	task := newTestTask(t, "task-0")

	require.NoError(t, Allocate(task, 40, 50, 20, server))
	assert.True(t, task.Allocated())
	assert.InDelta(t, 60.0, server.Available().Storage, 1e-9)
	assert.InDelta(t, 50.0, server.Available().Computation, 1e-9)
	assert.InDelta(t, 40.0, server.Available().Bandwidth, 1e-9)

	// Usage above availability leaves both sides untouched.
	greedy := newTestTask(t, "task-1")
	assert.Error(t, Allocate(greedy, 40, 80, 20, server))
	assert.False(t, greedy.Allocated())
	assert.Equal(t, 1, server.TaskCount())
}
