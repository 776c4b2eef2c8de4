package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/roovies/concert-reservation/internal/domain/waiting"
	"go.uber.org/zap"
)

const (
	StatusChannel = "channel:status"
	AdmitChannel  = "channel:admit"

	defaultCloseTimeout = 5 * time.Second
)

type statusMessage struct {
	ScheduleID uuid.UUID `json:"scheduleId"`
}

type admitMessage struct {
	ScheduleID uuid.UUID `json:"scheduleId"`
	UserKey    string    `json:"userKey"`
	Token      string    `json:"token"`
}

// WaitingListener receives waiting-room broadcasts on every instance.
type WaitingListener interface {
	OnStatus(ctx context.Context, scheduleID uuid.UUID)
	OnAdmissions(ctx context.Context, admissions []waiting.Admission)
}

// RedisWaitingNotifier broadcasts waiting-room events over Redis pub/sub.
type RedisWaitingNotifier struct {
	client   *redis.Client
	logger   *zap.Logger
	mu       sync.Mutex
	cancelFn context.CancelFunc
	doneCh   chan struct{}
	doneOnce sync.Once
	running  bool
}

// NewRedisWaitingNotifier creates a notifier; the caller keeps ownership of client.
func NewRedisWaitingNotifier(client *redis.Client, logger *zap.Logger) *RedisWaitingNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisWaitingNotifier{
		client: client,
		logger: logger.Named("waiting-notifier"),
		doneCh: make(chan struct{}),
	}
}

// PublishStatus implements waiting.Notifier
func (n *RedisWaitingNotifier) PublishStatus(ctx context.Context, scheduleID uuid.UUID) error {
	return n.publish(ctx, StatusChannel, statusMessage{ScheduleID: scheduleID})
}

// PublishAdmissions implements waiting.Notifier
func (n *RedisWaitingNotifier) PublishAdmissions(ctx context.Context, admissions []waiting.Admission) error {
	if len(admissions) == 0 {
		return nil
	}
	msgs := make([]admitMessage, len(admissions))
	for i, a := range admissions {
		msgs[i] = admitMessage{ScheduleID: a.ScheduleID, UserKey: a.UserKey.String(), Token: a.Token}
	}
	return n.publish(ctx, AdmitChannel, msgs)
}

func (n *RedisWaitingNotifier) publish(ctx context.Context, channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", channel, err)
	}
	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		n.logger.Error("Failed to publish waiting message", zap.String("channel", channel), zap.Error(err))
		return fmt.Errorf("failed to publish %s message: %w", channel, err)
	}
	return nil
}

// Subscribe blocks, delivering broadcasts to l until ctx is cancelled or Close is called.
func (n *RedisWaitingNotifier) Subscribe(ctx context.Context, l WaitingListener) error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	n.running = true
	n.cancelFn = cancel
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.running = false
		n.mu.Unlock()
		n.doneOnce.Do(func() { close(n.doneCh) })
	}()

	pubsub := n.client.Subscribe(subCtx, StatusChannel, AdmitChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to waiting channels: %w", err)
	}
	n.logger.Info("Subscribed to waiting channels")

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				n.logger.Warn("Waiting channel closed")
				return nil
			}
			n.dispatch(subCtx, l, msg)
		}
	}
}

func (n *RedisWaitingNotifier) dispatch(ctx context.Context, l WaitingListener, msg *redis.Message) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Panic in waiting listener", zap.Any("panic", r), zap.String("channel", msg.Channel))
		}
	}()

	switch msg.Channel {
	case StatusChannel:
		var m statusMessage
		if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
			n.logger.Warn("Malformed status message", zap.String("payload", msg.Payload), zap.Error(err))
			return
		}
		l.OnStatus(ctx, m.ScheduleID)
	case AdmitChannel:
		var ms []admitMessage
		if err := json.Unmarshal([]byte(msg.Payload), &ms); err != nil {
			n.logger.Warn("Malformed admit message", zap.String("payload", msg.Payload), zap.Error(err))
			return
		}
		admissions := make([]waiting.Admission, len(ms))
		for i, m := range ms {
			admissions[i] = waiting.Admission{ScheduleID: m.ScheduleID, UserKey: waiting.UserKey(m.UserKey), Token: m.Token}
		}
		l.OnAdmissions(ctx, admissions)
	}
}

// Close stops a running subscription and waits briefly for it to exit.
func (n *RedisWaitingNotifier) Close() error {
	n.mu.Lock()
	cancel := n.cancelFn
	n.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-n.doneCh:
	case <-time.After(defaultCloseTimeout):
		n.logger.Warn("Timeout waiting for subscription to stop")
	}
	return nil
}

var _ waiting.Notifier = (*RedisWaitingNotifier)(nil)
