package lock

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// A missing key counts as a full semaphore; it is materialized on first write.
var (
	acquireScript = redis.NewScript(`
local max = tonumber(ARGV[2])
local n = tonumber(ARGV[1])
local cur = tonumber(redis.call("GET", KEYS[1]) or max)
if cur < n then
	return 0
end
redis.call("SET", KEYS[1], cur - n)
return 1
`)

	releaseScript = redis.NewScript(`
local max = tonumber(ARGV[2])
local cur = tonumber(redis.call("GET", KEYS[1]) or max) + tonumber(ARGV[1])
if cur > max then
	cur = max
end
redis.call("SET", KEYS[1], cur)
return cur
`)
)

// RedisSemaphore is a counting semaphore stored as an integer per key.
type RedisSemaphore struct {
	client *redis.Client
	max    int
}

// NewRedisSemaphore creates a semaphore family with max permits per key.
func NewRedisSemaphore(client *redis.Client, max int) *RedisSemaphore {
	return &RedisSemaphore{client: client, max: max}
}

// Max returns the permit ceiling.
func (s *RedisSemaphore) Max() int { return s.max }

// Available returns the free permits for key.
func (s *RedisSemaphore) Available(ctx context.Context, key string) (int, error) {
	n, err := s.client.Get(ctx, key).Int()
	if err == redis.Nil {
		return s.max, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read semaphore %s: %w", key, err)
	}
	return n, nil
}

// TryAcquire takes n permits or none.
func (s *RedisSemaphore) TryAcquire(ctx context.Context, key string, n int) (bool, error) {
	if n <= 0 {
		return true, nil
	}
	res, err := acquireScript.Run(ctx, s.client, []string{key}, n, s.max).Int()
	if err != nil {
		return false, fmt.Errorf("acquire semaphore %s: %w", key, err)
	}
	return res == 1, nil
}

// Release returns n permits, capped at max.
func (s *RedisSemaphore) Release(ctx context.Context, key string, n int) error {
	if n <= 0 {
		return nil
	}
	if err := releaseScript.Run(ctx, s.client, []string{key}, n, s.max).Err(); err != nil {
		return fmt.Errorf("release semaphore %s: %w", key, err)
	}
	return nil
}
