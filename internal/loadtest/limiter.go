package loadtest

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Limiter caps the number of simultaneously held permits.
type Limiter struct {
	sem  *semaphore.Weighted
	size int
}

// NewLimiter creates a Limiter with exactly concurrency permits.
func NewLimiter(concurrency int) (*Limiter, error) {
	if concurrency < 1 {
		return nil, fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, concurrency)
	}
	return &Limiter{
		sem:  semaphore.NewWeighted(int64(concurrency)),
		size: concurrency,
	}, nil
}

// Size returns the configured number of permits.
func (l *Limiter) Size() int {
	return l.size
}

// Acquire blocks until a permit is free or ctx is done. Waiters are served
// in FIFO order.
func (l *Limiter) Acquire(ctx context.Context) (*Permit, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &Permit{sem: l.sem}, nil
}

// Permit is one unit of limiter capacity.
type Permit struct {
	sem  *semaphore.Weighted
	once sync.Once
}

// Release returns the permit. Calls after the first are no-ops.
func (p *Permit) Release() {
	p.once.Do(func() { p.sem.Release(1) })
}
