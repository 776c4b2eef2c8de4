// Package lock provides Redis-backed distributed locks and counting semaphores.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

const defaultPollInterval = 50 * time.Millisecond

// unlockScript deletes the key only while it still carries our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker hands out SET NX PX locks.
type RedisLocker struct {
	client       *redis.Client
	pollInterval time.Duration
}

// NewRedisLocker creates a locker on an existing client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, pollInterval: defaultPollInterval}
}

// Lock is a held lock. Release is safe to call more than once.
type Lock struct {
	client   *redis.Client
	key      string
	token    string
	released bool
}

// Key returns the locked key.
func (l *Lock) Key() string { return l.key }

// Release deletes the key if this lock still owns it.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil || l.released {
		return nil
	}
	l.released = true
	if err := unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}

// TryAcquire makes a single attempt.
func (r *RedisLocker) TryAcquire(ctx context.Context, key string, lease time.Duration) (*Lock, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, lease).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{client: r.client, key: key, token: token}, true, nil
}

// Acquire retries until the lock is taken or wait elapses, in which case it
// returns shared.ErrLockTimeout.
func (r *RedisLocker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (*Lock, error) {
	deadline := time.Now().Add(wait)
	for {
		l, ok, err := r.TryAcquire(ctx, key, lease)
		if err != nil {
			return nil, err
		}
		if ok {
			return l, nil
		}
		if !time.Now().Before(deadline) {
			return nil, shared.ErrLockTimeout.WithCause(fmt.Errorf("lock %s busy", key))
		}

		timer := time.NewTimer(r.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Locks is a set of held locks.
type Locks []*Lock

// Release releases every lock in reverse acquisition order.
func (ls Locks) Release(ctx context.Context) error {
	var errs []error
	for i := len(ls) - 1; i >= 0; i-- {
		if err := ls[i].Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AcquireAll locks keys in sorted order so that concurrent callers asking for
// overlapping sets cannot deadlock. On failure every lock taken so far is released.
func (r *RedisLocker) AcquireAll(ctx context.Context, keys []string, wait, lease time.Duration) (Locks, error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	deadline := time.Now().Add(wait)
	held := make(Locks, 0, len(sorted))
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		l, err := r.Acquire(ctx, key, remaining, lease)
		if err != nil {
			_ = held.Release(context.WithoutCancel(ctx))
			return nil, err
		}
		held = append(held, l)
	}
	return held, nil
}
