package cache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/roovies/concert-reservation/internal/domain/waiting"
	"go.uber.org/zap"
)

// AdmissionExpiredFunc is called when an admission token expires in Redis.
type AdmissionExpiredFunc func(ctx context.Context, scheduleID uuid.UUID, key waiting.UserKey)

// AdmissionExpiryListener watches keyspace expiry events for admitted keys.
// Requires notify-keyspace-events to include "Ex".
type AdmissionExpiryListener struct {
	client *redis.Client
	logger *zap.Logger
}

// NewAdmissionExpiryListener creates a listener
func NewAdmissionExpiryListener(client *redis.Client, logger *zap.Logger) *AdmissionExpiryListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionExpiryListener{client: client, logger: logger.Named("admission-expiry")}
}

// Run blocks until ctx is done.
func (l *AdmissionExpiryListener) Run(ctx context.Context, onExpired AdmissionExpiredFunc) error {
	channel := fmt.Sprintf("__keyevent@%d__:expired", l.client.Options().DB)
	pubsub := l.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	l.logger.Info("Listening for admission expiry", zap.String("channel", channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			sid, key, ok := ParseAdmittedKey(msg.Payload)
			if !ok {
				continue
			}
			l.logger.Debug("Admission expired", zap.String("schedule_id", sid.String()), zap.String("user_key", key.String()))
			onExpired(ctx, sid, key)
		}
	}
}
