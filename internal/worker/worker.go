// Package worker runs independent tasks concurrently with a bounded number of workers.
//
// Every task receives its own context, optionally bounded by a per-task timeout derived from the context it was
// submitted with. A failing, timed-out or panicking task never cancels its siblings: its error is collected and
// the remaining tasks keep running. Errors are aggregated into a MultiError returned by Wait.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relplan/relplan/internal/errors"
)

// DefaultMaxWorkers is the concurrency used when none is configured.
const DefaultMaxWorkers = 8

// Task represents a unit of work that can be executed
type Task func(ctx context.Context) error

// Option configures a Pool.
type Option func(*Pool)

// WithTaskTimeout bounds every task by its own deadline.
func WithTaskTimeout(timeout time.Duration) Option {
	return func(wp *Pool) {
		wp.taskTimeout = timeout
	}
}

// Pool manages concurrent task execution with a configurable number of workers
type Pool struct {
	semaphore   chan struct{}
	allErrors   *errors.MultiError
	wg          sync.WaitGroup
	maxWorkers  int
	taskTimeout time.Duration
	mu          sync.RWMutex
	allErrorsMu sync.RWMutex
	isStopping  atomic.Bool
	isRunning   bool
}

// NewWorkerPool creates a new worker pool with the specified maximum number of concurrent workers
func NewWorkerPool(maxWorkers int, opts ...Option) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	wp := &Pool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
		allErrors:  &errors.MultiError{},
	}

	for _, opt := range opts {
		opt(wp)
	}

	return wp
}

// Start initializes the worker pool
func (wp *Pool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.isRunning {
		return
	}

	wp.isRunning = true
	wp.isStopping.Store(false)

	wp.semaphore = make(chan struct{}, wp.maxWorkers)

	wp.allErrorsMu.Lock()
	wp.allErrors = &errors.MultiError{}
	wp.allErrorsMu.Unlock()
}

// appendError safely appends an error to allErrors
func (wp *Pool) appendError(err error) {
	if err == nil {
		return
	}

	wp.allErrorsMu.Lock()
	wp.allErrors = wp.allErrors.Append(err)
	wp.allErrorsMu.Unlock()
}

// Submit schedules a task. It returns false if the pool is stopping and the task was dropped.
func (wp *Pool) Submit(ctx context.Context, task Task) bool {
	wp.mu.RLock()
	notRunning := !wp.isRunning
	wp.mu.RUnlock()

	if notRunning {
		wp.Start()
	}

	if wp.isStopping.Load() {
		return false
	}

	wp.wg.Add(1)

	go func() {
		defer wp.wg.Done()

		if err := ctx.Err(); err != nil {
			wp.appendError(errors.New(err))
			return
		}

		select {
		case wp.semaphore <- struct{}{}:
		case <-ctx.Done():
			wp.appendError(errors.New(ctx.Err()))
			return
		}

		defer func() { <-wp.semaphore }()

		wp.appendError(wp.run(ctx, task))
	}()

	return true
}

// run executes a task with its own deadline and turns a panic into an error.
func (wp *Pool) run(ctx context.Context, task Task) (err error) {
	if wp.taskTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, wp.taskTimeout)
		defer cancel()
	}

	defer errors.Recover(func(cause error) {
		err = errors.WithPrefix(cause, "task panicked")
	})

	return task(ctx)
}

// Wait blocks until all tasks are completed and returns any errors
func (wp *Pool) Wait() error {
	wp.wg.Wait()

	wp.allErrorsMu.RLock()
	result := wp.allErrors.ErrorOrNil()
	wp.allErrorsMu.RUnlock()

	return result
}

// GracefulStop waits for all tasks to complete before stopping the pool
func (wp *Pool) GracefulStop() error {
	wp.isStopping.Store(true)

	err := wp.Wait()

	wp.mu.Lock()
	defer wp.mu.Unlock()

	wp.isRunning = false

	return err
}
