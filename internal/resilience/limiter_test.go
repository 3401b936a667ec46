package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiter_NeverExceedsCapacity(t *testing.T) {
	const capacity = 5
	const jobs = 25

	limiter := NewLimiter(capacity)

	var running atomic.Int64
	var maxObserved atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := limiter.Acquire(context.Background()); err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			defer limiter.Release()

			current := running.Add(1)
			for {
				observed := maxObserved.Load()
				if current <= observed || maxObserved.CompareAndSwap(observed, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}()
	}
	wg.Wait()

	if got := maxObserved.Load(); got > capacity {
		t.Errorf("observed %d concurrent jobs, capacity is %d", got, capacity)
	}
	if limiter.InFlight() != 0 {
		t.Errorf("expected 0 in-flight after completion, got %d", limiter.InFlight())
	}
}

func TestLimiter_AcquireHonoursContext(t *testing.T) {
	limiter := NewLimiter(1)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Acquire(ctx); err == nil {
		t.Fatal("second acquire should fail once the context expires")
	}

	limiter.Release()
	if limiter.InFlight() != 0 {
		t.Errorf("expected 0 in-flight, got %d", limiter.InFlight())
	}
}
