package point

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Service manages point wallets
type Service struct {
	scope     appshared.TransactionScope
	pointRepo point.PointRepository
	retry     appshared.RetryPolicy
	metrics   appshared.Metrics
	logger    *zap.Logger
}

// NewService creates a new point service
func NewService(
	scope appshared.TransactionScope,
	pointRepo point.PointRepository,
	retry appshared.RetryPolicy,
	metrics appshared.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		scope:     scope,
		pointRepo: pointRepo,
		retry:     retry,
		metrics:   appshared.MetricsOrNop(metrics),
		logger:    logger,
	}
}

// GetBalance returns the wallet, or a zero balance if the user never charged
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceDTO, error) {
	wallet, err := s.pointRepo.FindByUserID(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return &BalanceDTO{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return ToBalanceDTO(wallet), nil
}

// GetHistory lists balance changes, newest first
func (s *Service) GetHistory(ctx context.Context, userID uuid.UUID, page shared.PageRequest) (*shared.Paginated[HistoryDTO], error) {
	page = page.Normalize()
	rows, total, err := s.pointRepo.FindHistory(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	items := make([]HistoryDTO, len(rows))
	for i, h := range rows {
		items[i] = toHistoryDTO(h)
	}
	result := shared.NewPaginated(items, total, page.Page, page.PageSize)
	return &result, nil
}

// Charge adds points; amount must be a positive multiple of 100
func (s *Service) Charge(ctx context.Context, userID uuid.UUID, amount int64) (*BalanceDTO, error) {
	return s.change(ctx, userID, point.HistoryTypeCharge, amount, nil)
}

// Deduct spends points outside a payment
func (s *Service) Deduct(ctx context.Context, userID uuid.UUID, amount int64, referenceID *uuid.UUID) (*BalanceDTO, error) {
	return s.change(ctx, userID, point.HistoryTypeUse, amount, referenceID)
}

// Refund returns previously used points
func (s *Service) Refund(ctx context.Context, userID uuid.UUID, amount int64, referenceID *uuid.UUID) (*BalanceDTO, error) {
	return s.change(ctx, userID, point.HistoryTypeRefund, amount, referenceID)
}

// Reward credits earned points
func (s *Service) Reward(ctx context.Context, userID uuid.UUID, amount int64, referenceID *uuid.UUID) (*BalanceDTO, error) {
	return s.change(ctx, userID, point.HistoryTypeReward, amount, referenceID)
}

func (s *Service) change(
	ctx context.Context,
	userID uuid.UUID,
	typ point.HistoryType,
	amount int64,
	referenceID *uuid.UUID,
) (*BalanceDTO, error) {
	operation := strings.ToLower(string(typ))
	ctx, span := telemetry.StartServiceSpan(ctx, "point", operation)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, userID.String(),
		telemetry.SpanAttrAmount, amount,
	)

	value, err := toAmount(amount)
	if err != nil {
		s.metrics.PointOperation(ctx, operation, appshared.ResultFailed)
		return nil, err
	}

	var wallet *point.Point
	err = appshared.RetryOnConflict(ctx, s.retry, func(attempt int) error {
		if attempt > 1 {
			s.logger.Debug("Retrying point update",
				zap.String("user_id", userID.String()),
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
			)
		}
		return s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
			var err error
			wallet, err = Apply(ctx, repos.PointRepo(), userID, typ, value, referenceID)
			return err
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.PointOperation(ctx, operation, appshared.ResultFailed)
		return nil, err
	}

	s.metrics.PointOperation(ctx, operation, appshared.ResultSuccess)
	s.logger.Info("Point balance changed",
		zap.String("user_id", userID.String()),
		zap.String("operation", operation),
		zap.Int64("amount", amount),
		zap.Int64("balance", wallet.Amount.Value()),
	)
	return ToBalanceDTO(wallet), nil
}
