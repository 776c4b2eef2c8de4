package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
)

const (
	holdIdempotencyPrefix = "idempotency:hold-seat:"
	processingMarker      = "PROCESSING"
)

// RedisHoldIdempotencyStore records hold requests under their idempotency key.
// The value is the PROCESSING marker while the request runs, then the JSON result.
type RedisHoldIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisHoldIdempotencyStore creates the store; ttl applies to markers and results.
func NewRedisHoldIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisHoldIdempotencyStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisHoldIdempotencyStore{client: client, ttl: ttl}
}

func (s *RedisHoldIdempotencyStore) key(k string) string {
	return holdIdempotencyPrefix + k
}

// TryProcess implements reservation.HoldIdempotencyStore
func (s *RedisHoldIdempotencyStore) TryProcess(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), processingMarker, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

// IsProcessing implements reservation.HoldIdempotencyStore
func (s *RedisHoldIdempotencyStore) IsProcessing(ctx context.Context, key string) (bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read idempotency key: %w", err)
	}
	return v == processingMarker, nil
}

// FindResult implements reservation.HoldIdempotencyStore
func (s *RedisHoldIdempotencyStore) FindResult(ctx context.Context, key string) (*reservation.HoldSeat, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) || v == processingMarker {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency result: %w", err)
	}
	var result reservation.HoldSeat
	if err := json.Unmarshal([]byte(v), &result); err != nil {
		return nil, fmt.Errorf("decode idempotency result: %w", err)
	}
	return &result, nil
}

// SaveResult implements reservation.HoldIdempotencyStore
func (s *RedisHoldIdempotencyStore) SaveResult(ctx context.Context, key string, result *reservation.HoldSeat) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode idempotency result: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save idempotency result: %w", err)
	}
	return nil
}

// RemoveProcessing implements reservation.HoldIdempotencyStore.
// A stored result is left alone.
func (s *RedisHoldIdempotencyStore) RemoveProcessing(ctx context.Context, key string) error {
	if err := compareAndDeleteScript.Run(ctx, s.client, []string{s.key(key)}, processingMarker).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("remove idempotency marker: %w", err)
	}
	return nil
}

var _ reservation.HoldIdempotencyStore = (*RedisHoldIdempotencyStore)(nil)
