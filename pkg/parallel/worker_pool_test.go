package parallel

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/logging"
)

func newTestPool(t *testing.T, workers int) *WorkerPool {
	t.Helper()
	pool, err := NewWorkerPool(workers)
	if err != nil {
		t.Fatalf("NewWorkerPool failed: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// TestWorkerPoolConcurrentSubmissions tests concurrent task submissions
func TestWorkerPoolConcurrentSubmissions(t *testing.T) {
	pool := newTestPool(t, 10)

	numTasks := 100
	var counter int64

	var wg sync.WaitGroup
	for i := 0; i < numTasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(func() {
				atomic.AddInt64(&counter, 1)
			})
		}()
	}

	wg.Wait()
	pool.Close()

	if counter != int64(numTasks) {
		t.Errorf("Expected counter %d, got %d", numTasks, counter)
	}
	if got := pool.Stats().Completed; got != uint64(numTasks) {
		t.Errorf("Expected %d completed, got %d", numTasks, got)
	}
}

// TestWorkerPoolCloseRace validates that closing while submitting doesn't panic
func TestWorkerPoolCloseRace(t *testing.T) {
	for iteration := 0; iteration < 50; iteration++ {
		pool, _ := NewWorkerPool(4)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					pool.Submit(func() {
						time.Sleep(time.Millisecond)
					})
				}
			}()
		}

		time.Sleep(2 * time.Millisecond)
		pool.Close()
		wg.Wait()
	}
}

// TestWorkerPoolSubmitAfterClose tests that submissions after close fail
func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool, _ := NewWorkerPool(4)
	if !pool.Submit(func() {}) {
		t.Error("Task submission before close should succeed")
	}
	pool.Close()
	pool.Close()

	if pool.Submit(func() { t.Error("This task should never execute") }) {
		t.Error("Task submission after close should return false")
	}
	if err := pool.SubmitContext(context.Background(), func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
}

// TestWorkerPoolSubmitContext tests that a full queue respects the deadline
func TestWorkerPoolSubmitContext(t *testing.T) {
	pool := newTestPool(t, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	pool.Submit(func() {
		close(started)
		<-release
	})
	<-started
	// Fill the buffer (2 slots for 1 worker).
	pool.Submit(func() {})
	pool.Submit(func() {})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.SubmitContext(ctx, func() {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
	if pool.Stats().Active != 1 || pool.Stats().Queued != 2 {
		t.Errorf("Unexpected stats %+v", pool.Stats())
	}
	close(release)
}

// TestWorkerPoolWithPanic tests that panics in tasks don't crash the pool
func TestWorkerPoolWithPanic(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := logging.NewJSONLogger(&lockedWriter{w: &buf, mu: &mu}, logging.ErrorLevel)

	pool, err := NewWorkerPoolWithLogger(4, logger)
	if err != nil {
		t.Fatalf("NewWorkerPoolWithLogger failed: %v", err)
	}

	var counter int64
	for i := 0; i < 5; i++ {
		pool.Submit(func() {
			panic("intentional panic")
		})
	}
	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			atomic.AddInt64(&counter, 1)
		})
	}
	pool.Close()

	if counter != 10 {
		t.Errorf("Expected counter 10, got %d", counter)
	}
	if pool.Stats().Panics != 5 {
		t.Errorf("Expected 5 panics, got %d", pool.Stats().Panics)
	}
	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(buf.String(), "intentional panic") {
		t.Errorf("Expected panic to be logged, got %q", buf.String())
	}
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// BenchmarkWorkerPoolThroughput benchmarks worker pool throughput
func BenchmarkWorkerPoolThroughput(b *testing.B) {
	pool, _ := NewWorkerPool(10)
	defer pool.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Submit(func() {})
	}
}
