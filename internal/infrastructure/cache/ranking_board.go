package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/roovies/concert-reservation/internal/domain/ranking"
)

const (
	realtimeRankingKey = "ranking:realtime"
	weeklyRankingKey   = "ranking:weekly"
)

// RedisRankingBoard keeps payment counts per schedule in sorted sets.
type RedisRankingBoard struct {
	client      *redis.Client
	realtimeTTL time.Duration
}

// NewRedisRankingBoard creates a board; the realtime set expires realtimeTTL
// after its first increment.
func NewRedisRankingBoard(client *redis.Client, realtimeTTL time.Duration) *RedisRankingBoard {
	return &RedisRankingBoard{client: client, realtimeTTL: realtimeTTL}
}

func rankingKey(typ ranking.Type) (string, error) {
	switch typ {
	case ranking.TypeRealtime:
		return realtimeRankingKey, nil
	case ranking.TypeWeekly:
		return weeklyRankingKey, nil
	}
	return "", fmt.Errorf("unknown ranking type %q", typ)
}

// IncrementRealtime implements ranking.Board
func (b *RedisRankingBoard) IncrementRealtime(ctx context.Context, scheduleID uuid.UUID) error {
	pipe := b.client.TxPipeline()
	pipe.ZIncrBy(ctx, realtimeRankingKey, 1, scheduleID.String())
	if b.realtimeTTL > 0 {
		pipe.ExpireNX(ctx, realtimeRankingKey, b.realtimeTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment realtime ranking: %w", err)
	}
	return nil
}

// Top implements ranking.Board
func (b *RedisRankingBoard) Top(ctx context.Context, typ ranking.Type, n int) ([]ranking.Score, error) {
	key, err := rankingKey(typ)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = ranking.DefaultTopN
	}
	zs, err := b.client.ZRevRangeWithScores(ctx, key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s ranking: %w", typ, err)
	}
	scores := make([]ranking.Score, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		scores = append(scores, ranking.Score{ScheduleID: id, PaymentCount: int64(z.Score)})
	}
	return scores, nil
}

// ReplaceWeekly implements ranking.Board. Readers see either the old or the
// new set, never a partial one.
func (b *RedisRankingBoard) ReplaceWeekly(ctx context.Context, scores []ranking.Score) error {
	if len(scores) == 0 {
		if err := b.client.Del(ctx, weeklyRankingKey).Err(); err != nil {
			return fmt.Errorf("clear weekly ranking: %w", err)
		}
		return nil
	}

	tmp := weeklyRankingKey + ":tmp:" + uuid.NewString()
	members := make([]redis.Z, len(scores))
	for i, s := range scores {
		members[i] = redis.Z{Score: float64(s.PaymentCount), Member: s.ScheduleID.String()}
	}

	pipe := b.client.TxPipeline()
	pipe.ZAdd(ctx, tmp, members...)
	pipe.Rename(ctx, tmp, weeklyRankingKey)
	if _, err := pipe.Exec(ctx); err != nil {
		_ = b.client.Del(context.WithoutCancel(ctx), tmp).Err()
		return fmt.Errorf("replace weekly ranking: %w", err)
	}
	return nil
}

var _ ranking.Board = (*RedisRankingBoard)(nil)
