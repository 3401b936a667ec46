package resilience

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter is a counting admission gate bounding how many synthesis jobs run
// concurrently. Acquire suspends the caller until a slot frees.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64
}

// NewLimiter creates a limiter admitting at most capacity concurrent holders.
func NewLimiter(capacity int) *Limiter {
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a slot is free or the context is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.inFlight.Add(1)
	return nil
}

// Release frees one slot.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.sem.Release(1)
}

// InFlight returns the number of currently admitted holders.
func (l *Limiter) InFlight() int64 {
	return l.inFlight.Load()
}

// Capacity returns the configured limit.
func (l *Limiter) Capacity() int64 {
	return l.capacity
}
