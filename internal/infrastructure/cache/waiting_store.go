package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/roovies/concert-reservation/internal/domain/waiting"
	"github.com/roovies/concert-reservation/internal/infrastructure/lock"
)

const (
	semaphoreKeyPrefix    = "semaphore:reservation:"
	waitingQueueKeyPrefix = "waiting:reservation:"
	activeWaitingKey      = "active:waiting:reservations"
	admittedKeyPrefix     = "admitted:reservation:"
	admitLockKeyPrefix    = "admit:lock:reservation:"
)

// RedisWaitingStore implements waiting.QueueStore on Redis.
type RedisWaitingStore struct {
	client     *redis.Client
	semaphore  *lock.RedisSemaphore
	locker     *lock.RedisLocker
	admitLease time.Duration
}

// NewRedisWaitingStore creates the store. maxPermits bounds concurrently
// admitted sessions per schedule; admitLease bounds one admission round.
func NewRedisWaitingStore(client *redis.Client, maxPermits int, admitLease time.Duration) *RedisWaitingStore {
	return &RedisWaitingStore{
		client:     client,
		semaphore:  lock.NewRedisSemaphore(client, maxPermits),
		locker:     lock.NewRedisLocker(client),
		admitLease: admitLease,
	}
}

func semaphoreKey(sid uuid.UUID) string { return semaphoreKeyPrefix + sid.String() }
func queueKey(sid uuid.UUID) string     { return waitingQueueKeyPrefix + sid.String() }

// AdmittedKey is the Redis key holding an admission token.
func AdmittedKey(sid uuid.UUID, key waiting.UserKey) string {
	return admittedKeyPrefix + sid.String() + ":" + key.String()
}

// ParseAdmittedKey splits an admitted key back into schedule and session.
func ParseAdmittedKey(redisKey string) (uuid.UUID, waiting.UserKey, bool) {
	rest, ok := strings.CutPrefix(redisKey, admittedKeyPrefix)
	if !ok {
		return uuid.Nil, "", false
	}
	sidPart, userKey, ok := strings.Cut(rest, ":")
	if !ok {
		return uuid.Nil, "", false
	}
	sid, err := uuid.Parse(sidPart)
	if err != nil {
		return uuid.Nil, "", false
	}
	return sid, waiting.UserKey(userKey), true
}

// TryAcquirePermits implements waiting.QueueStore
func (s *RedisWaitingStore) TryAcquirePermits(ctx context.Context, sid uuid.UUID, n int) (bool, error) {
	return s.semaphore.TryAcquire(ctx, semaphoreKey(sid), n)
}

// AvailablePermits implements waiting.QueueStore
func (s *RedisWaitingStore) AvailablePermits(ctx context.Context, sid uuid.UUID) (int, error) {
	return s.semaphore.Available(ctx, semaphoreKey(sid))
}

// ReleasePermits implements waiting.QueueStore
func (s *RedisWaitingStore) ReleasePermits(ctx context.Context, sid uuid.UUID, n int) error {
	return s.semaphore.Release(ctx, semaphoreKey(sid), n)
}

// TryAdmitLock implements waiting.QueueStore
func (s *RedisWaitingStore) TryAdmitLock(ctx context.Context, sid uuid.UUID) (func(), bool, error) {
	l, ok, err := s.locker.TryAcquire(ctx, admitLockKeyPrefix+sid.String(), s.admitLease)
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() { _ = l.Release(context.WithoutCancel(ctx)) }, true, nil
}

// Enqueue implements waiting.QueueStore
func (s *RedisWaitingStore) Enqueue(ctx context.Context, sid uuid.UUID, key waiting.UserKey, at time.Time) error {
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, queueKey(sid), redis.Z{Score: float64(at.UnixMilli()), Member: key.String()})
	pipe.SAdd(ctx, activeWaitingKey, sid.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue waiting user: %w", err)
	}
	return nil
}

// Requeue implements waiting.QueueStore
func (s *RedisWaitingStore) Requeue(ctx context.Context, sid uuid.UUID, entry waiting.Entry) error {
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, queueKey(sid), redis.Z{Score: entry.Score, Member: entry.UserKey.String()})
	pipe.SAdd(ctx, activeWaitingKey, sid.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("requeue waiting user: %w", err)
	}
	return nil
}

// Position implements waiting.QueueStore
func (s *RedisWaitingStore) Position(ctx context.Context, sid uuid.UUID, key waiting.UserKey) (waiting.Position, error) {
	pipe := s.client.Pipeline()
	rankCmd := pipe.ZRank(ctx, queueKey(sid), key.String())
	sizeCmd := pipe.ZCard(ctx, queueKey(sid))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return waiting.Position{}, fmt.Errorf("read waiting position: %w", err)
	}

	pos := waiting.Position{UserKey: key, TotalWaiting: sizeCmd.Val()}
	if rank, err := rankCmd.Result(); err == nil {
		pos.Rank = &rank
	}
	return pos, nil
}

// Remove implements waiting.QueueStore
func (s *RedisWaitingStore) Remove(ctx context.Context, sid uuid.UUID, key waiting.UserKey) (bool, error) {
	removed, err := s.client.ZRem(ctx, queueKey(sid), key.String()).Result()
	if err != nil {
		return false, fmt.Errorf("remove waiting user: %w", err)
	}
	size, err := s.client.ZCard(ctx, queueKey(sid)).Result()
	if err != nil {
		return removed > 0, fmt.Errorf("read waiting size: %w", err)
	}
	if size == 0 {
		if err := s.Deactivate(ctx, sid); err != nil {
			return removed > 0, err
		}
	}
	return removed > 0, nil
}

// Size implements waiting.QueueStore
func (s *RedisWaitingStore) Size(ctx context.Context, sid uuid.UUID) (int64, error) {
	n, err := s.client.ZCard(ctx, queueKey(sid)).Result()
	if err != nil {
		return 0, fmt.Errorf("read waiting size: %w", err)
	}
	return n, nil
}

// PopFront implements waiting.QueueStore
func (s *RedisWaitingStore) PopFront(ctx context.Context, sid uuid.UUID, n int) ([]waiting.Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := s.client.ZPopMin(ctx, queueKey(sid), int64(n)).Result()
	if err != nil {
		return nil, fmt.Errorf("pop waiting users: %w", err)
	}
	entries := make([]waiting.Entry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, waiting.Entry{UserKey: waiting.UserKey(member), Score: z.Score})
	}
	return entries, nil
}

// ActiveSchedules implements waiting.QueueStore
func (s *RedisWaitingStore) ActiveSchedules(ctx context.Context) ([]uuid.UUID, error) {
	members, err := s.client.SMembers(ctx, activeWaitingKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if id, err := uuid.Parse(m); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Deactivate implements waiting.QueueStore
func (s *RedisWaitingStore) Deactivate(ctx context.Context, sid uuid.UUID) error {
	if err := s.client.SRem(ctx, activeWaitingKey, sid.String()).Err(); err != nil {
		return fmt.Errorf("deactivate schedule: %w", err)
	}
	return nil
}

// SaveAdmittedToken implements waiting.QueueStore
func (s *RedisWaitingStore) SaveAdmittedToken(ctx context.Context, sid uuid.UUID, key waiting.UserKey, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, AdmittedKey(sid, key), token, ttl).Err(); err != nil {
		return fmt.Errorf("save admission token: %w", err)
	}
	return nil
}

// DeleteAdmittedToken implements waiting.QueueStore
func (s *RedisWaitingStore) DeleteAdmittedToken(ctx context.Context, sid uuid.UUID, key waiting.UserKey) (bool, error) {
	n, err := s.client.Del(ctx, AdmittedKey(sid, key)).Result()
	if err != nil {
		return false, fmt.Errorf("delete admission token: %w", err)
	}
	return n > 0, nil
}

// HasAdmittedToken implements waiting.QueueStore
func (s *RedisWaitingStore) HasAdmittedToken(ctx context.Context, sid uuid.UUID, key waiting.UserKey) (bool, error) {
	n, err := s.client.Exists(ctx, AdmittedKey(sid, key)).Result()
	if err != nil {
		return false, fmt.Errorf("check admission token: %w", err)
	}
	return n > 0, nil
}

var _ waiting.QueueStore = (*RedisWaitingStore)(nil)
