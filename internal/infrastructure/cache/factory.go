package cache

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrRedisUnavailable is returned when Redis is enabled, no client could be
// built and the in-memory fallback is disabled
var ErrRedisUnavailable = errors.New("redis is enabled but no client is available")

type storeSettings struct {
	logger      *zap.Logger
	keyPrefix   string
	strict      bool
	memoryOpts  []MemoryStoreOption
	redisClient redis.Cmdable
}

// StoreOption configures NewIdempotencyStore
type StoreOption func(*storeSettings)

// WithLogger logs which store was chosen
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *storeSettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRedisClient supplies the shared client. A nil client counts as Redis being down.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(s *storeSettings) {
		if client != nil {
			s.redisClient = client
		}
	}
}

// WithKeyPrefix namespaces keys in Redis
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *storeSettings) {
		s.keyPrefix = prefix
	}
}

// WithMemoryOptions is applied when the in-memory store is chosen
func WithMemoryOptions(opts ...MemoryStoreOption) StoreOption {
	return func(s *storeSettings) {
		s.memoryOpts = append(s.memoryOpts, opts...)
	}
}

// RequireRedis turns a missing client into ErrRedisUnavailable instead of
// falling back to process memory
func RequireRedis() StoreOption {
	return func(s *storeSettings) {
		s.strict = true
	}
}

// NewIdempotencyStore picks the payment idempotency store for cfg.
// With Redis disabled the store lives in process memory. With Redis enabled
// and a client present keys are shared across instances.
func NewIdempotencyStore(cfg config.RedisConfig, opts ...StoreOption) (shared.IdempotencyStore, error) {
	s := storeSettings{logger: zap.NewNop(), keyPrefix: DefaultIdempotencyKeyPrefix}
	for _, opt := range opts {
		opt(&s)
	}
	log := s.logger.Named("idempotency")

	switch {
	case !cfg.Enabled:
		log.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(s.memoryOpts...), nil
	case s.redisClient != nil:
		log.Info("Using Redis idempotency store",
			zap.String("addr", cfg.Addr()),
			zap.String("key_prefix", s.keyPrefix),
		)
		return NewRedisIdempotencyStore(s.redisClient, s.keyPrefix), nil
	case s.strict:
		return nil, ErrRedisUnavailable
	}

	log.Warn("Redis unavailable, falling back to in-memory idempotency store; " +
		"a retried payment reaching another instance will not be recognized")
	return NewInMemoryIdempotencyStore(s.memoryOpts...), nil
}
