package flux

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sneezeparty/soupy/internal/testutils"
	"github.com/sneezeparty/soupy/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsJobsInOrder(t *testing.T) {
	queue := NewQueue(16, nil, log.NewNullLogger())
	queue.Listen()
	defer queue.Shutdown()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		i := i
		require.NoError(t, queue.Enqueue(Job{Action: ActionFlux, Run: func(ctx context.Context) {
			order = append(order, i)
			if i == 2 {
				close(done)
			}
		}}))
	}

	testutils.WithTimeout(2*time.Second, func() {
		<-done
	})
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestQueue_SizeTracking(t *testing.T) {
	queue := NewQueue(16, nil, log.NewNullLogger())

	release := make(chan struct{})
	_ = queue.Enqueue(Job{Action: ActionFlux, Run: func(ctx context.Context) { <-release }})
	_ = queue.Enqueue(Job{Action: ActionRemix, Run: func(ctx context.Context) {}})
	assert.Equal(t, 2, queue.Size())

	queue.Listen()
	close(release)
	testutils.WaitUntil(2*time.Second, func() bool {
		return queue.Size() == 0
	})
	queue.Shutdown()
}

func TestQueue_FullRejectsJobs(t *testing.T) {
	queue := NewQueue(1, nil, log.NewNullLogger())

	require.NoError(t, queue.Enqueue(Job{Action: ActionFlux, Run: func(ctx context.Context) {}}))
	assert.ErrorIs(t, queue.Enqueue(Job{Action: ActionFlux, Run: func(ctx context.Context) {}}), ErrQueueFull)
}

func TestQueue_ShutdownDiscardsPending(t *testing.T) {
	queue := NewQueue(16, nil, log.NewNullLogger())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		_ = queue.Enqueue(Job{Action: ActionFlux, Run: func(ctx context.Context) { ran.Add(1) }})
	}
	queue.Listen()
	queue.Shutdown()

	assert.Equal(t, 0, queue.Size())
	assert.ErrorIs(t, queue.Enqueue(Job{Action: ActionFlux, Run: func(ctx context.Context) {}}), ErrQueueClosed)
}

func TestQueue_SendRacingShutdownLeavesNothingStranded(t *testing.T) {
	queue := NewQueue(16, nil, log.NewNullLogger())
	queue.Listen()
	queue.Shutdown()

	// mimics an Enqueue that passed the closed check right before
	// Shutdown flipped it and drained the channel
	err := queue.offer(Job{Action: ActionFlux, Run: func(ctx context.Context) {}})
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 0, len(queue.jobs))
}

func TestQueue_RecoversFromPanic(t *testing.T) {
	queue := NewQueue(16, nil, log.NewNullLogger())
	queue.Listen()
	defer queue.Shutdown()

	done := make(chan struct{})
	require.NoError(t, queue.Enqueue(Job{Action: ActionFlux, Run: func(ctx context.Context) { panic("boom") }}))
	require.NoError(t, queue.Enqueue(Job{Action: ActionFlux, Run: func(ctx context.Context) { close(done) }}))

	testutils.WithTimeout(2*time.Second, func() {
		<-done
	})
}
