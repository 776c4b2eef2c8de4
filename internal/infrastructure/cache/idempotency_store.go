package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"go.uber.org/zap"
)

const defaultEventIdempotencyPrefix = "event:idempotency:"

// RedisIdempotencyStore records processed event keys in Redis so that every
// instance sees the same history.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store on a shared client.
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = defaultEventIdempotencyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed implements shared.IdempotencyStore using SET NX.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+eventID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return ok, nil
}

// IsProcessed implements shared.IdempotencyStore
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if event is processed: %w", err)
	}
	return n > 0, nil
}

// Close is a no-op; the client is owned by the caller.
func (s *RedisIdempotencyStore) Close() error { return nil }

// NewIdempotencyStore returns a Redis store when client answers PING and an
// in-memory store otherwise, if fallback is allowed.
func NewIdempotencyStore(ctx context.Context, client *redis.Client, allowFallback bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var pingErr error
	if client != nil {
		pingErr = client.Ping(ctx).Err()
		if pingErr == nil {
			logger.Info("using Redis idempotency store")
			return NewRedisIdempotencyStore(client, ""), nil
		}
	} else {
		pingErr = fmt.Errorf("no redis client configured")
	}

	if !allowFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", pingErr)
	}
	logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"duplicate event handling is possible across instances", zap.Error(pingErr))
	return NewInMemoryIdempotencyStore(), nil
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
