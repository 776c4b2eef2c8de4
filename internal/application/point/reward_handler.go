package point

import (
	"context"
	"fmt"

	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	"github.com/roovies/concert-reservation/internal/domain/payment"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
	"github.com/roovies/concert-reservation/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RewardHandler credits reward points once a reservation is confirmed.
// A business failure publishes PointRewardFailed and CompensatePayment so
// the payment is refunded; infrastructure errors are returned and the outbox
// retries the event.
type RewardHandler struct {
	scope   appshared.TransactionScope
	retry   appshared.RetryPolicy
	metrics appshared.Metrics
	logger  *zap.Logger
}

// NewRewardHandler creates the ReservationCompleted handler
func NewRewardHandler(scope appshared.TransactionScope, retry appshared.RetryPolicy, metrics appshared.Metrics, logger *zap.Logger) *RewardHandler {
	return &RewardHandler{
		scope:   scope,
		retry:   retry,
		metrics: appshared.MetricsOrNop(metrics),
		logger:  logger,
	}
}

// EventTypes implements shared.EventHandler
func (h *RewardHandler) EventTypes() []string {
	return []string{payment.EventTypeReservationCompleted}
}

// Handle implements shared.EventHandler
func (h *RewardHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	e, ok := ev.(*payment.ReservationCompletedEvent)
	if !ok {
		return fmt.Errorf("reward handler: unexpected event %T", ev)
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "point", "reward")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, e.PaymentID.String(),
		telemetry.SpanAttrUserID, e.UserID.String(),
	)

	original, err := valueobject.NewAmount(e.OriginalAmount)
	if err != nil {
		return h.compensate(ctx, e, 0, err)
	}
	reward := point.RewardFor(original)
	if reward.IsZero() {
		return nil
	}

	err = appshared.RetryOnConflict(ctx, h.retry, func(int) error {
		return h.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
			wallet, err := Apply(ctx, repos.PointRepo(), e.UserID, point.HistoryTypeReward, reward, &e.PaymentID)
			if err != nil {
				return err
			}
			return repos.Outbox().Write(ctx,
				point.NewPointRewardCompletedEvent(e.PaymentID, e.UserID, reward.Value(), wallet.Amount.Value()))
		})
	})
	if err == nil {
		h.metrics.PointOperation(ctx, "reward", appshared.ResultSuccess)
		h.logger.Info("Reward points credited",
			zap.String("payment_id", e.PaymentID.String()),
			zap.Int64("reward", reward.Value()),
		)
		return nil
	}

	telemetry.RecordError(span, err)
	h.metrics.PointOperation(ctx, "reward", appshared.ResultFailed)
	if _, business := shared.AsDomainError(err); !business {
		return err
	}
	return h.compensate(ctx, e, reward.Value(), err)
}

func (h *RewardHandler) compensate(ctx context.Context, e *payment.ReservationCompletedEvent, reward int64, cause error) error {
	h.logger.Warn("Reward failed, requesting payment compensation",
		zap.String("payment_id", e.PaymentID.String()),
		zap.Error(cause),
	)
	return h.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		return repos.Outbox().Write(ctx,
			point.NewPointRewardFailedEvent(e.PaymentID, e.UserID, reward, cause.Error()),
			point.NewCompensatePaymentEvent(e.PaymentID, e.UserID, e.PaidAmount, cause.Error()),
		)
	})
}
