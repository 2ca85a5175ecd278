package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllTasksCompleteWithoutErrors(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(5)
	var counter atomic.Int32

	for range 10 {
		wp.Submit(t.Context(), func(context.Context) error {
			counter.Add(1)
			return nil
		})
	}

	require.NoError(t, wp.Wait())
	assert.Equal(t, int32(10), counter.Load())
}

func TestSomeTasksReturnErrors(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(3)
	var successCount atomic.Int32

	for i := range 10 {
		wp.Submit(t.Context(), func(context.Context) error {
			if i%2 == 0 {
				return errors.New("mock error")
			}

			successCount.Add(1)

			return nil
		})
	}

	err := wp.Wait()
	require.Error(t, err)

	var multiErr *errors.MultiError
	require.ErrorAs(t, err, &multiErr)
	assert.Equal(t, 5, multiErr.Len())
	assert.Equal(t, int32(5), successCount.Load())
}

func TestConcurrencyIsBounded(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(2)
	var running, peak atomic.Int32

	for range 8 {
		wp.Submit(t.Context(), func(context.Context) error {
			current := running.Add(1)
			defer running.Add(-1)

			for {
				old := peak.Load()
				if current <= old || peak.CompareAndSwap(old, current) {
					break
				}
			}

			time.Sleep(10 * time.Millisecond)

			return nil
		})
	}

	require.NoError(t, wp.Wait())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestTaskTimeoutDoesNotCancelSiblings(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(4, worker.WithTaskTimeout(20*time.Millisecond))
	var completed atomic.Int32

	wp.Submit(t.Context(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	for range 3 {
		wp.Submit(t.Context(), func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			completed.Add(1)

			return nil
		})
	}

	err := wp.Wait()
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(3), completed.Load())
}

func TestPanickingTaskIsRecovered(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(2)
	var completed atomic.Int32

	wp.Submit(t.Context(), func(context.Context) error {
		panic("boom")
	})

	wp.Submit(t.Context(), func(context.Context) error {
		completed.Add(1)
		return nil
	})

	err := wp.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task panicked")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, int32(1), completed.Load())
}

func TestSubmitRestartsStoppedPool(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(2)

	var counter atomic.Int32

	for range 5 {
		wp.Submit(t.Context(), func(context.Context) error {
			counter.Add(1)
			return nil
		})
	}

	require.NoError(t, wp.GracefulStop())
	require.Equal(t, int32(5), counter.Load())

	for range 3 {
		assert.True(t, wp.Submit(t.Context(), func(context.Context) error {
			counter.Add(1)
			return nil
		}))
	}

	require.NoError(t, wp.GracefulStop())
	assert.Equal(t, int32(8), counter.Load())
}

func TestSubmitWithCancelledContext(t *testing.T) {
	t.Parallel()

	wp := worker.NewWorkerPool(1)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var ran atomic.Bool

	wp.Submit(ctx, func(context.Context) error {
		ran.Store(true)
		return nil
	})

	err := wp.Wait()
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load())
}
