package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/retailpos/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdempotencyStore(t *testing.T) {
	t.Run("redis disabled", func(t *testing.T) {
		store, err := NewIdempotencyStore(config.RedisConfig{})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("memory options are applied", func(t *testing.T) {
		clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
		store, err := NewIdempotencyStore(config.RedisConfig{},
			WithMemoryOptions(WithSweepInterval(0), WithClock(clock.Now)),
		)
		require.NoError(t, err)
		defer store.Close()

		ctx := context.Background()
		claimed, err := store.MarkProcessed(ctx, "credit_payment:s1:k1", time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)

		clock.Advance(time.Minute)
		seen, err := store.IsProcessed(ctx, "credit_payment:s1:k1")
		require.NoError(t, err)
		assert.False(t, seen, "the injected clock decides expiry")
	})

	t.Run("redis enabled with client", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
		defer client.Close()

		store, err := NewIdempotencyStore(
			config.RedisConfig{Enabled: true, Host: "localhost", Port: 6379},
			WithRedisClient(client),
			WithKeyPrefix("store-7:"),
		)
		require.NoError(t, err)
		require.IsType(t, &RedisIdempotencyStore{}, store)
		assert.Equal(t, "store-7:", store.(*RedisIdempotencyStore).keyPrefix)
	})

	t.Run("redis enabled without client falls back", func(t *testing.T) {
		store, err := NewIdempotencyStore(config.RedisConfig{Enabled: true}, WithRedisClient(nil))
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis required", func(t *testing.T) {
		_, err := NewIdempotencyStore(config.RedisConfig{Enabled: true}, RequireRedis())
		assert.ErrorIs(t, err, ErrRedisUnavailable)
	})
}
