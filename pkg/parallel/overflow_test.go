package parallel

import (
	"errors"
	"math"
	"testing"
)

func TestWorkerPoolOverflow(t *testing.T) {
	_, err := NewWorkerPool(math.MaxInt)
	if !errors.Is(err, ErrTooManyWorkers) {
		t.Errorf("Expected ErrTooManyWorkers, got %v", err)
	}
}

func TestWorkerPoolSizes(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{16, 16},
		{1000, 1000},
	}

	for _, tt := range tests {
		pool, err := NewWorkerPool(tt.in)
		if err != nil {
			t.Fatalf("NewWorkerPool(%d) failed: %v", tt.in, err)
		}
		if pool.Workers() != tt.want {
			t.Errorf("NewWorkerPool(%d): expected %d workers, got %d", tt.in, tt.want, pool.Workers())
		}
		if cap(pool.taskQueue) != tt.want*2 {
			t.Errorf("Expected buffer capacity %d, got %d", tt.want*2, cap(pool.taskQueue))
		}
		pool.Close()
	}
}
