package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/credit"
	"go.uber.org/zap"
)

// KeyPrefix prefixes every credit sale lock key
const KeyPrefix = "credit_sale:"

// Key returns the Redis key that guards a sale
func Key(saleID uuid.UUID) string {
	return KeyPrefix + saleID.String()
}

// RedisSaleLocker serializes operations on one sale across every instance sharing Redis.
// The lock expires after ttl, so a crashed holder cannot block a sale forever.
type RedisSaleLocker struct {
	client        *redislock.Client
	ttl           time.Duration
	wait          time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

// RedisLockerOption configures a RedisSaleLocker
type RedisLockerOption func(*RedisSaleLocker)

// WithWait bounds how long Lock retries before returning credit.ErrSaleLocked
func WithWait(wait time.Duration) RedisLockerOption {
	return func(l *RedisSaleLocker) {
		l.wait = wait
	}
}

// WithRetryInterval sets the pause between lock attempts
func WithRetryInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisSaleLocker) {
		if d > 0 {
			l.retryInterval = d
		}
	}
}

// WithLogger sets the logger used to report failed releases
func WithLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisSaleLocker) {
		l.logger = logger
	}
}

// NewRedisSaleLocker creates a locker on a redislock client. wait defaults to ttl.
func NewRedisSaleLocker(client redislock.RedisClient, ttl time.Duration, opts ...RedisLockerOption) *RedisSaleLocker {
	l := &RedisSaleLocker{
		client:        redislock.New(client),
		ttl:           ttl,
		wait:          ttl,
		retryInterval: 50 * time.Millisecond,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock obtains the sale's lock, retrying until it is free, wait has elapsed or ctx is done
func (l *RedisSaleLocker) Lock(ctx context.Context, saleID uuid.UUID) (func(), error) {
	key := Key(saleID)

	obtainCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	lk, err := l.client.Obtain(obtainCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.retryInterval),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
			return nil, credit.ErrSaleLocked
		}
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := lk.Release(releaseCtx); err != nil {
			// ErrLockNotHeld means the ttl elapsed while the operation ran
			l.logger.Warn("Failed to release credit sale lock",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}, nil
}

var _ credit.SaleLocker = (*RedisSaleLocker)(nil)
