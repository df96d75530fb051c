// Package lock provides the per-sale locks that serialize payment registration.
package lock

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
)

const defaultStripes = 256

// MemorySaleLocker serializes operations on one sale inside a single process.
// Sales are hashed onto a fixed set of stripes, so two different sales may
// occasionally wait on each other but the same sale never runs concurrently.
type MemorySaleLocker struct {
	stripes []chan struct{}
	wait    time.Duration
}

// MemoryLockerOption configures a MemorySaleLocker
type MemoryLockerOption func(*MemorySaleLocker)

// WithStripes sets the number of stripes
func WithStripes(n int) MemoryLockerOption {
	return func(l *MemorySaleLocker) {
		if n > 0 {
			l.stripes = make([]chan struct{}, n)
		}
	}
}

// NewMemorySaleLocker creates a locker that gives up after wait with credit.ErrSaleLocked.
// A zero wait blocks until the lock is free or the context is done.
func NewMemorySaleLocker(wait time.Duration, opts ...MemoryLockerOption) *MemorySaleLocker {
	l := &MemorySaleLocker{
		stripes: make([]chan struct{}, defaultStripes),
		wait:    wait,
	}
	for _, opt := range opts {
		opt(l)
	}
	for i := range l.stripes {
		l.stripes[i] = make(chan struct{}, 1)
	}
	return l
}

// Lock blocks until the sale's stripe is free
func (l *MemorySaleLocker) Lock(ctx context.Context, saleID uuid.UUID) (func(), error) {
	stripe := l.stripeFor(saleID)

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case stripe <- struct{}{}:
		return func() { <-stripe }, nil
	case <-timeout:
		return nil, credit.ErrSaleLocked
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *MemorySaleLocker) stripeFor(saleID uuid.UUID) chan struct{} {
	h := fnv.New32a()
	_, _ = h.Write(saleID[:])
	return l.stripes[h.Sum32()%uint32(len(l.stripes))]
}

var _ credit.SaleLocker = (*MemorySaleLocker)(nil)
