package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
)

const holdKeyPrefix = "hold:"

var (
	// holdAllScript writes every hold or none.
	holdAllScript = redis.NewScript(`
for _, k in ipairs(KEYS) do
	if redis.call("EXISTS", k) == 1 then
		return 0
	end
end
for _, k in ipairs(KEYS) do
	redis.call("SET", k, ARGV[1], "PX", ARGV[2])
end
return 1
`)

	// releaseHoldsScript deletes only the keys owned by ARGV[1].
	releaseHoldsScript = redis.NewScript(`
local n = 0
for _, k in ipairs(KEYS) do
	if redis.call("GET", k) == ARGV[1] then
		n = n + redis.call("DEL", k)
	end
end
return n
`)
)

// RedisHoldStore keeps seat holds as hold:{scheduleID}:{seatID} = userID.
type RedisHoldStore struct {
	client *redis.Client
}

// NewRedisHoldStore creates a hold store
func NewRedisHoldStore(client *redis.Client) *RedisHoldStore {
	return &RedisHoldStore{client: client}
}

// HoldKey returns the Redis key of one seat hold.
func HoldKey(scheduleID, seatID uuid.UUID) string {
	return holdKeyPrefix + scheduleID.String() + ":" + seatID.String()
}

func holdKeys(scheduleID uuid.UUID, seatIDs []uuid.UUID) []string {
	keys := make([]string, len(seatIDs))
	for i, id := range seatIDs {
		keys[i] = HoldKey(scheduleID, id)
	}
	return keys
}

// HoldAll implements reservation.HoldStore
func (s *RedisHoldStore) HoldAll(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID, ttl time.Duration) (bool, error) {
	if len(seatIDs) == 0 {
		return false, nil
	}
	res, err := holdAllScript.Run(ctx, s.client, holdKeys(scheduleID, seatIDs), userID.String(), ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("hold seats: %w", err)
	}
	return res == 1, nil
}

// IsHeldByUser implements reservation.HoldStore
func (s *RedisHoldStore) IsHeldByUser(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (bool, error) {
	if len(seatIDs) == 0 {
		return false, nil
	}
	vals, err := s.client.MGet(ctx, holdKeys(scheduleID, seatIDs)...).Result()
	if err != nil {
		return false, fmt.Errorf("read holds: %w", err)
	}
	owner := userID.String()
	for _, v := range vals {
		if str, ok := v.(string); !ok || str != owner {
			return false, nil
		}
	}
	return true, nil
}

// TTLSeconds implements reservation.HoldStore
func (s *RedisHoldStore) TTLSeconds(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) (int64, error) {
	if len(seatIDs) == 0 {
		return -2, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.DurationCmd, len(seatIDs))
	for i, key := range holdKeys(scheduleID, seatIDs) {
		cmds[i] = pipe.TTL(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, fmt.Errorf("read hold ttl: %w", err)
	}

	var min int64 = -1
	for _, cmd := range cmds {
		d := cmd.Val()
		// go-redis reports a missing key as -2ns and no expiry as -1ns.
		if d == -2 {
			return -2, nil
		}
		secs := int64(d / time.Second)
		if d < 0 {
			secs = -1
		}
		if min == -1 || (secs >= 0 && secs < min) {
			min = secs
		}
	}
	return min, nil
}

// Release implements reservation.HoldStore
func (s *RedisHoldStore) Release(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	n, err := releaseHoldsScript.Run(ctx, s.client, holdKeys(scheduleID, seatIDs), userID.String()).Int()
	if err != nil {
		return 0, fmt.Errorf("release holds: %w", err)
	}
	return n, nil
}

// HeldSeatIDs implements reservation.HoldStore
func (s *RedisHoldStore) HeldSeatIDs(ctx context.Context, scheduleID uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	prefix := holdKeyPrefix + scheduleID.String() + ":"
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan holds: %w", err)
	}

	held := make(map[uuid.UUID]uuid.UUID, len(keys))
	if len(keys) == 0 {
		return held, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read holds: %w", err)
	}
	for i, key := range keys {
		owner, ok := vals[i].(string)
		if !ok {
			continue // expired between SCAN and MGET
		}
		seatID, err := uuid.Parse(strings.TrimPrefix(key, prefix))
		if err != nil {
			continue
		}
		userID, err := uuid.Parse(owner)
		if err != nil {
			continue
		}
		held[seatID] = userID
	}
	return held, nil
}

var _ reservation.HoldStore = (*RedisHoldStore)(nil)
