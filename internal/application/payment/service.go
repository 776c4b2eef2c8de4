// Package payment pays for held seats with points and refunds payments.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	pointapp "github.com/roovies/concert-reservation/internal/application/point"
	reservationapp "github.com/roovies/concert-reservation/internal/application/reservation"
	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	"github.com/roovies/concert-reservation/internal/domain/payment"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
	"github.com/roovies/concert-reservation/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// HoldService reads and releases the caller's seat holds
type HoldService interface {
	GetHeldSeats(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (*reservation.HoldSeat, error)
	ReleaseHolds(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (int, error)
}

// SeatPricer prices a set of seats
type SeatPricer interface {
	GetSeatsTotalPrice(ctx context.Context, seatIDs []uuid.UUID) (valueobject.Money, error)
}

// Service handles payments
type Service struct {
	scope       appshared.TransactionScope
	paymentRepo payment.PaymentRepository
	idemRepo    payment.IdempotencyRepository
	holds       HoldService
	pricer      SeatPricer
	retry       appshared.RetryPolicy
	metrics     appshared.Metrics
	logger      *zap.Logger
}

// NewService creates a new payment service
func NewService(
	scope appshared.TransactionScope,
	paymentRepo payment.PaymentRepository,
	idemRepo payment.IdempotencyRepository,
	holds HoldService,
	pricer SeatPricer,
	retry appshared.RetryPolicy,
	metrics appshared.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		scope:       scope,
		paymentRepo: paymentRepo,
		idemRepo:    idemRepo,
		holds:       holds,
		pricer:      pricer,
		retry:       retry,
		metrics:     appshared.MetricsOrNop(metrics),
		logger:      logger,
	}
}

// Pay settles the caller's held seats with points. In one transaction it
// deducts the paid amount, saves the payment, confirms the reservation,
// records the idempotent result and queues PaymentCompleted and
// ReservationCompleted. The holds are released after commit.
func (s *Service) Pay(ctx context.Context, in PayInput) (*PaymentDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "pay")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, in.UserID.String(),
		telemetry.SpanAttrScheduleID, in.ScheduleID.String(),
		telemetry.SpanAttrIdempotency, in.IdempotencyKey,
	)

	var (
		result *PaymentDTO
		opErr  error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("pay"), func(c context.Context) {
		result, opErr = s.pay(c, in)
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		outcome := appshared.ResultFailed
		if errors.Is(opErr, shared.ErrDuplicateRequest) {
			outcome = appshared.ResultDuplicate
		}
		s.metrics.Payment(ctx, outcome, 0)
		return nil, opErr
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, result.ID.String())
	return result, nil
}

func (s *Service) pay(ctx context.Context, in PayInput) (*PaymentDTO, error) {
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Idempotency-Key header is required")
	}

	hold, err := s.holds.GetHeldSeats(ctx, in.ScheduleID, in.SeatIDs, in.UserID)
	if err != nil {
		return nil, err
	}
	if hold == nil || len(hold.SeatIDs) == 0 {
		return nil, shared.NewDomainError("INVALID_STATE", "No held seats to pay for")
	}
	price, err := s.pricer.GetSeatsTotalPrice(ctx, hold.SeatIDs)
	if err != nil {
		return nil, err
	}
	amount := price.ToAmount()

	idem := payment.NewProcessingIdempotency(key, in.UserID)
	claimed, err := s.idemRepo.TryInsert(ctx, idem)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return s.replay(ctx, key)
	}

	var paid *payment.Payment
	err = appshared.RetryOnConflict(ctx, s.retry, func(int) error {
		var err error
		paid, err = s.settle(ctx, idem, hold, amount)
		return err
	})
	if err != nil {
		s.markFailed(ctx, idem, err)
		return nil, err
	}

	if _, err := s.holds.ReleaseHolds(context.WithoutCancel(ctx), hold.ScheduleID, hold.SeatIDs, in.UserID); err != nil {
		s.logger.Warn("Failed to release holds after payment",
			zap.String("payment_id", paid.ID.String()),
			zap.Error(err),
		)
	}

	s.metrics.Payment(ctx, appshared.ResultSuccess, paid.PaidAmount.Value())
	s.logger.Info("Payment completed",
		zap.String("payment_id", paid.ID.String()),
		zap.String("user_id", in.UserID.String()),
		zap.Int64("paid_amount", paid.PaidAmount.Value()),
	)
	return ToPaymentDTO(paid), nil
}

func (s *Service) settle(
	ctx context.Context,
	idem *payment.Idempotency,
	hold *reservation.HoldSeat,
	amount valueobject.Amount,
) (*payment.Payment, error) {
	var p *payment.Payment
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		p, err = payment.NewPayment(hold.UserID, hold.ScheduleID, amount, amount)
		if err != nil {
			return err
		}
		if _, err := pointapp.Apply(ctx, repos.PointRepo(), hold.UserID, point.HistoryTypeUse, p.PaidAmount, &p.ID); err != nil {
			return err
		}
		r, err := reservationapp.Confirm(ctx, repos, hold.UserID, p.ID, hold.ScheduleID, hold.SeatIDs)
		if err != nil {
			return err
		}
		p.AttachReservation(r.ID)
		if err := repos.PaymentRepo().Save(ctx, p); err != nil {
			return err
		}

		data, err := json.Marshal(ToPaymentDTO(p))
		if err != nil {
			return fmt.Errorf("encode payment result: %w", err)
		}
		idem.SetResult(p.ID, string(data))
		if err := repos.IdempotencyRepo().Update(ctx, idem); err != nil {
			return err
		}
		return repos.Outbox().Write(ctx,
			payment.NewPaymentCompletedEvent(p, []uuid.UUID{hold.ScheduleID}),
			payment.NewReservationCompletedEvent(p, r.ID),
		)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) markFailed(ctx context.Context, idem *payment.Idempotency, cause error) {
	message := payment.SystemErrorMessage
	if de, ok := shared.AsDomainError(cause); ok {
		message = de.Message
	}
	idem.MarkFailed(message)
	if err := s.idemRepo.Update(context.WithoutCancel(ctx), idem); err != nil {
		s.logger.Error("Failed to record payment failure",
			zap.String("idempotency_key", idem.Key),
			zap.Error(err),
		)
	}
	s.logger.Warn("Payment failed", zap.String("idempotency_key", idem.Key), zap.Error(cause))
}

func (s *Service) replay(ctx context.Context, key string) (*PaymentDTO, error) {
	existing, err := s.idemRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	switch {
	case existing.IsProcessing():
		return nil, shared.ErrDuplicateRequest
	case existing.IsSuccess():
		var dto PaymentDTO
		if err := json.Unmarshal([]byte(existing.ResultData), &dto); err != nil {
			return nil, fmt.Errorf("decode stored payment result: %w", err)
		}
		s.metrics.Payment(ctx, appshared.ResultReplayed, 0)
		return &dto, nil
	default:
		return nil, shared.NewDomainError("INVALID_STATE", "A previous request with this key failed; use a new idempotency key")
	}
}

// Refund cancels the caller's payment: points are returned, the reservation
// is cancelled and the seats go back on sale
func (s *Service) Refund(ctx context.Context, in RefundInput) (*PaymentDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "refund")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, in.PaymentID.String())

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "cancelled by user"
	}
	p, err := s.refund(ctx, in.PaymentID, &in.UserID, reason)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToPaymentDTO(p), nil
}

// refund runs the refund transaction. A nil owner skips the ownership check
// for system-initiated refunds.
func (s *Service) refund(ctx context.Context, paymentID uuid.UUID, owner *uuid.UUID, reason string) (*payment.Payment, error) {
	var p *payment.Payment
	err := appshared.RetryOnConflict(ctx, s.retry, func(int) error {
		return s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
			var err error
			p, err = repos.PaymentRepo().FindByID(ctx, paymentID)
			if err != nil {
				return err
			}
			if owner != nil && !p.IsOwnedBy(*owner) {
				return shared.ErrForbidden
			}
			if err := p.Refund(reason); err != nil {
				return err
			}
			if err := repos.PaymentRepo().Update(ctx, p); err != nil {
				return err
			}
			if _, err := pointapp.Apply(ctx, repos.PointRepo(), p.UserID, point.HistoryTypeRefund, p.PaidAmount, &p.ID); err != nil {
				return err
			}
			if _, err := reservationapp.CancelByPayment(ctx, repos, p.ID); err != nil {
				return err
			}
			events := p.GetDomainEvents()
			p.ClearDomainEvents()
			return repos.Outbox().Write(ctx, events...)
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.PointOperation(ctx, "refund", appshared.ResultSuccess)
	s.logger.Info("Payment refunded",
		zap.String("payment_id", p.ID.String()),
		zap.Int64("refund_amount", p.PaidAmount.Value()),
		zap.String("reason", reason),
	)
	return p, nil
}

// GetPayment returns a payment to its owner
func (s *Service) GetPayment(ctx context.Context, paymentID, userID uuid.UUID) (*PaymentDTO, error) {
	p, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.IsOwnedBy(userID) {
		return nil, shared.ErrForbidden
	}
	return ToPaymentDTO(p), nil
}
