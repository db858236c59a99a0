package parallel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-navigator/pkg/logging"
)

// WorkerPool manages a pool of worker goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu
	logger    logging.Logger

	active    atomic.Int64
	completed atomic.Uint64
	panics    atomic.Uint64
}

var (
	// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
	ErrTooManyWorkers = fmt.Errorf("worker count exceeds maximum")
	// ErrPoolClosed is returned when submitting to a closed pool.
	ErrPoolClosed = errors.New("worker pool is closed")
)

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// Stats is a point-in-time view of pool activity
type Stats struct {
	Workers   int    `json:"workers"`
	Queued    int    `json:"queued"`
	Active    int64  `json:"active"`
	Completed uint64 `json:"completed"`
	Panics    uint64 `json:"panics"`
}

// NewWorkerPool creates a new worker pool with specified number of workers.
// Returns an error if the worker count exceeds MaxWorkers.
func NewWorkerPool(workers int) (*WorkerPool, error) {
	return NewWorkerPoolWithLogger(workers, logging.NewNopLogger())
}

// NewWorkerPoolWithLogger creates a pool that reports recovered task panics to logger.
func NewWorkerPoolWithLogger(workers int, logger logging.Logger) (*WorkerPool, error) {
	if workers <= 0 {
		workers = 1
	}

	// Prevent overflow in buffer size calculation
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2), // Buffer for 2x workers
		logger:    logger.With(logging.Component("worker_pool")),
	}

	pool.start()
	return pool, nil
}

// start initializes the worker goroutines
func (wp *WorkerPool) start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// worker processes tasks from the queue
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		wp.run(task)
	}
}

func (wp *WorkerPool) run(task func()) {
	wp.active.Add(1)
	defer func() {
		wp.active.Add(-1)
		wp.completed.Add(1)
		// Recover from panics in tasks to prevent worker crash
		if r := recover(); r != nil {
			wp.panics.Add(1)
			wp.logger.Error("worker panic recovered", logging.Any("panic", r))
		}
	}()
	task()
}

// Submit adds a task to the worker pool, blocking while the queue is full.
// Returns false if the pool is closed, true if task was submitted
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	// Check if pool is closed while holding read lock
	if wp.closed {
		return false
	}

	// Safe to send because we hold the lock and pool is not closed
	wp.taskQueue <- task
	return true
}

// SubmitContext is Submit that gives up when ctx is done before the task
// could be queued.
func (wp *WorkerPool) SubmitContext(ctx context.Context, task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.taskQueue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Workers returns the number of worker goroutines
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Stats returns current pool counters
func (wp *WorkerPool) Stats() Stats {
	return Stats{
		Workers:   wp.workers,
		Queued:    len(wp.taskQueue),
		Active:    wp.active.Load(),
		Completed: wp.completed.Load(),
		Panics:    wp.panics.Load(),
	}
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		// Acquire write lock before closing
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Wait waits for all submitted tasks to complete
func (wp *WorkerPool) Wait() {
	// Close the queue and wait for workers to finish
	wp.Close()
}
