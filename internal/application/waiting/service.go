// Package waiting runs the reservation waiting room: sessions queue per
// schedule and are admitted as permits free up.
package waiting

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/waiting"
	"github.com/roovies/concert-reservation/internal/infrastructure/auth"
	"github.com/roovies/concert-reservation/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// TokenService issues and verifies admission tokens
type TokenService interface {
	GenerateAdmissionToken(userKey string, scheduleID uuid.UUID, ttl time.Duration) (string, error)
	ValidateAdmissionToken(token string) (*auth.AdmissionClaims, error)
}

// Config holds waiting room timings
type Config struct {
	AdmissionTTL time.Duration
	SSETimeout   time.Duration
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{AdmissionTTL: waiting.DefaultAdmissionTTL, SSETimeout: 10 * time.Minute}
}

// EnterDTO is the response to joining the waiting room
type EnterDTO struct {
	Admitted      bool   `json:"admitted"`
	AdmittedToken string `json:"admittedToken,omitempty"`
	UserKey       string `json:"userKey"`
	Rank          int64  `json:"rank,omitempty"`
	TotalWaiting  int64  `json:"totalWaiting,omitempty"`
}

// Service coordinates the shared queue state with streams held by this instance
type Service struct {
	store    waiting.QueueStore
	notifier waiting.Notifier
	tokens   TokenService
	emitters *emitters
	config   Config
	metrics  appshared.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a waiting room service
func NewService(
	store waiting.QueueStore,
	notifier waiting.Notifier,
	tokens TokenService,
	config Config,
	metrics appshared.Metrics,
	logger *zap.Logger,
) *Service {
	if config.AdmissionTTL <= 0 {
		config.AdmissionTTL = waiting.DefaultAdmissionTTL
	}
	if config.SSETimeout <= 0 {
		config.SSETimeout = DefaultConfig().SSETimeout
	}
	return &Service{
		store:    store,
		notifier: notifier,
		tokens:   tokens,
		emitters: newEmitters(),
		config:   config,
		metrics:  appshared.MetricsOrNop(metrics),
		logger:   logger,
		now:      time.Now,
	}
}

// SSETimeout is how long a stream stays open
func (s *Service) SSETimeout() time.Duration { return s.config.SSETimeout }

// Enter joins the waiting room. With nobody in line and a free permit the
// session is admitted at once; otherwise it is queued.
func (s *Service) Enter(ctx context.Context, userID, scheduleID uuid.UUID) (*EnterDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "waiting", "enter")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, userID.String(),
		telemetry.SpanAttrScheduleID, scheduleID.String(),
	)

	key := waiting.NewUserKey(userID)
	size, err := s.store.Size(ctx, scheduleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if size == 0 {
		acquired, err := s.store.TryAcquirePermits(ctx, scheduleID, 1)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if acquired {
			token, err := s.issue(ctx, scheduleID, key)
			if err != nil {
				s.releasePermits(ctx, scheduleID, 1)
				telemetry.RecordError(span, err)
				return nil, err
			}
			s.metrics.Admission(ctx, scheduleID, 1)
			s.logger.Info("Admitted without waiting",
				zap.String("schedule_id", scheduleID.String()),
				zap.String("user_key", key.String()),
			)
			return &EnterDTO{Admitted: true, AdmittedToken: token, UserKey: key.String()}, nil
		}
	}

	if err := s.store.Enqueue(ctx, scheduleID, key, s.now()); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	pos, err := s.store.Position(ctx, scheduleID, key)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Debug("Entered waiting queue",
		zap.String("schedule_id", scheduleID.String()),
		zap.String("user_key", key.String()),
		zap.Int64("rank", pos.DisplayRank()),
	)
	return &EnterDTO{
		UserKey:      key.String(),
		Rank:         pos.DisplayRank(),
		TotalWaiting: pos.TotalWaiting,
	}, nil
}

// Subscribe opens a stream for a queued session. The caller must call
// Unsubscribe when the stream ends.
func (s *Service) Subscribe(ctx context.Context, userID, scheduleID uuid.UUID, userKey string) (*Subscription, error) {
	key := waiting.UserKey(userKey)
	if err := key.BelongsTo(userID); err != nil {
		return nil, err
	}
	sub := newSubscription(scheduleID, key)
	s.emitters.add(sub)
	sub.offer(Event{Name: EventConnected, Data: map[string]string{"userKey": key.String()}})
	s.logger.Debug("Waiting stream opened",
		zap.String("schedule_id", scheduleID.String()),
		zap.String("user_key", key.String()),
		zap.Int("streams", s.emitters.count()),
	)
	return sub, nil
}

// Unsubscribe closes a stream. A session that was never admitted leaves the queue.
func (s *Service) Unsubscribe(ctx context.Context, sub *Subscription) {
	s.emitters.remove(sub)
	if sub.Admitted() {
		return
	}
	if _, err := s.store.Remove(ctx, sub.ScheduleID, sub.UserKey); err != nil {
		s.logger.Warn("Failed to remove waiting session",
			zap.String("schedule_id", sub.ScheduleID.String()),
			zap.String("user_key", sub.UserKey.String()),
			zap.Error(err),
		)
	}
}

// Exit leaves the waiting room: the session is dequeued and, if admitted,
// its token revoked and its permit returned
func (s *Service) Exit(ctx context.Context, userID, scheduleID uuid.UUID, userKey string) error {
	key := waiting.UserKey(userKey)
	if err := key.BelongsTo(userID); err != nil {
		return err
	}
	if _, err := s.store.Remove(ctx, scheduleID, key); err != nil {
		return err
	}
	if sub, ok := s.emitters.get(scheduleID, key); ok {
		s.emitters.remove(sub)
	}
	deleted, err := s.store.DeleteAdmittedToken(ctx, scheduleID, key)
	if err != nil {
		return err
	}
	if deleted {
		s.releasePermits(ctx, scheduleID, 1)
	}
	return nil
}

// ValidateAdmission verifies an admission token and that it was not revoked
func (s *Service) ValidateAdmission(ctx context.Context, token string) (*waiting.Admission, error) {
	claims, err := s.tokens.ValidateAdmissionToken(token)
	if err != nil {
		return nil, shared.NewDomainError("UNAUTHORIZED", "Invalid admission token").WithCause(err)
	}
	scheduleID, err := claims.ScheduleUUID()
	if err != nil {
		return nil, shared.NewDomainError("UNAUTHORIZED", "Invalid admission token").WithCause(err)
	}
	key := waiting.UserKey(claims.UserKey)
	live, err := s.store.HasAdmittedToken(ctx, scheduleID, key)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, shared.NewDomainError("UNAUTHORIZED", "Admission has expired")
	}
	return &waiting.Admission{ScheduleID: scheduleID, UserKey: key, Token: token}, nil
}

// OnAdmissionExpired returns the permit of a token that timed out in the store
func (s *Service) OnAdmissionExpired(ctx context.Context, scheduleID uuid.UUID, key waiting.UserKey) {
	s.releasePermits(ctx, scheduleID, 1)
	s.logger.Info("Admission expired",
		zap.String("schedule_id", scheduleID.String()),
		zap.String("user_key", key.String()),
	)
}

// PublishStatuses asks every instance to push queue positions for each active
// schedule. Schedules with an empty queue are deactivated.
func (s *Service) PublishStatuses(ctx context.Context) error {
	schedules, err := s.store.ActiveSchedules(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, sid := range schedules {
		size, err := s.store.Size(ctx, sid)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.metrics.WaitingSize(ctx, sid, size)
		if size == 0 {
			if err := s.store.Deactivate(ctx, sid); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := s.notifier.PublishStatus(ctx, sid); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnStatus implements cache.WaitingListener
func (s *Service) OnStatus(ctx context.Context, scheduleID uuid.UUID) {
	now := s.now().UnixMilli()
	for _, sub := range s.emitters.forSchedule(scheduleID) {
		if sub.Admitted() {
			continue
		}
		pos, err := s.store.Position(ctx, scheduleID, sub.UserKey)
		if err != nil {
			s.logger.Warn("Failed to read waiting position", zap.String("user_key", sub.UserKey.String()), zap.Error(err))
			continue
		}
		if pos.Rank == nil {
			continue
		}
		sub.offer(Event{Name: EventStatusUpdate, Data: StatusEvent{
			ScheduleID:   scheduleID,
			Rank:         pos.DisplayRank(),
			TotalWaiting: pos.TotalWaiting,
			UserKey:      sub.UserKey.String(),
			Timestamp:    now,
		}})
	}
}

// OnAdmissions implements cache.WaitingListener. Delivery is once per stream,
// so the local call and the pub/sub echo do not duplicate.
func (s *Service) OnAdmissions(_ context.Context, admissions []waiting.Admission) {
	for _, a := range admissions {
		sub, ok := s.emitters.get(a.ScheduleID, a.UserKey)
		if !ok || !sub.admitted.CompareAndSwap(false, true) {
			continue
		}
		sub.offer(Event{Name: EventAdmit, Data: AdmitEvent{
			Token:      a.Token,
			ScheduleID: a.ScheduleID,
			UserKey:    a.UserKey.String(),
		}})
	}
}

// AdmitAll admits waiting sessions on every active schedule
func (s *Service) AdmitAll(ctx context.Context) error {
	schedules, err := s.store.ActiveSchedules(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, sid := range schedules {
		if _, err := s.Admit(ctx, sid); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Admit moves as many sessions off the front of a schedule's queue as there
// are free permits. Another instance holding the admit lock makes this a no-op.
func (s *Service) Admit(ctx context.Context, scheduleID uuid.UUID) ([]waiting.Admission, error) {
	release, locked, err := s.store.TryAdmitLock(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, nil
	}
	defer release()

	permits, err := s.store.AvailablePermits(ctx, scheduleID)
	if err != nil || permits <= 0 {
		return nil, err
	}
	size, err := s.store.Size(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, s.store.Deactivate(ctx, scheduleID)
	}

	count := min(permits, int(size))
	acquired, err := s.store.TryAcquirePermits(ctx, scheduleID, count)
	if err != nil || !acquired {
		return nil, err
	}
	entries, err := s.store.PopFront(ctx, scheduleID, count)
	if err != nil {
		s.releasePermits(ctx, scheduleID, count)
		return nil, err
	}
	if unused := count - len(entries); unused > 0 {
		s.releasePermits(ctx, scheduleID, unused)
	}

	admissions := make([]waiting.Admission, 0, len(entries))
	for _, entry := range entries {
		token, err := s.issue(ctx, scheduleID, entry.UserKey)
		if err != nil {
			s.logger.Error("Failed to admit waiting session, requeueing",
				zap.String("schedule_id", scheduleID.String()),
				zap.String("user_key", entry.UserKey.String()),
				zap.Error(err),
			)
			if err := s.store.Requeue(ctx, scheduleID, entry); err != nil {
				s.logger.Error("Failed to requeue waiting session", zap.String("user_key", entry.UserKey.String()), zap.Error(err))
			}
			s.releasePermits(ctx, scheduleID, 1)
			continue
		}
		admissions = append(admissions, waiting.Admission{ScheduleID: scheduleID, UserKey: entry.UserKey, Token: token})
	}
	if len(admissions) == 0 {
		return nil, nil
	}

	s.OnAdmissions(ctx, admissions)
	if err := s.notifier.PublishAdmissions(ctx, admissions); err != nil {
		s.logger.Warn("Failed to broadcast admissions", zap.Error(err))
	}
	s.metrics.Admission(ctx, scheduleID, len(admissions))
	s.logger.Info("Admitted waiting sessions",
		zap.String("schedule_id", scheduleID.String()),
		zap.Int("admitted", len(admissions)),
		zap.Int64("queue_size", size-int64(len(entries))),
	)
	return admissions, nil
}

func (s *Service) issue(ctx context.Context, scheduleID uuid.UUID, key waiting.UserKey) (string, error) {
	token, err := s.tokens.GenerateAdmissionToken(key.String(), scheduleID, s.config.AdmissionTTL)
	if err != nil {
		return "", err
	}
	if err := s.store.SaveAdmittedToken(ctx, scheduleID, key, token, s.config.AdmissionTTL); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) releasePermits(ctx context.Context, scheduleID uuid.UUID, n int) {
	if err := s.store.ReleasePermits(context.WithoutCancel(ctx), scheduleID, n); err != nil {
		s.logger.Error("Failed to release waiting permits",
			zap.String("schedule_id", scheduleID.String()),
			zap.Int("permits", n),
			zap.Error(err),
		)
	}
}
