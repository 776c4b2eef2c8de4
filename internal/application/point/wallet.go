package point

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
)

// Apply changes a user's wallet through repo and appends the matching
// history row. A missing wallet is created, except for USE which fails with
// INSUFFICIENT_BALANCE. The caller owns the transaction and any retry on
// OPTIMISTIC_LOCK_FAILED.
func Apply(
	ctx context.Context,
	repo point.PointRepository,
	userID uuid.UUID,
	typ point.HistoryType,
	amount valueobject.Amount,
	referenceID *uuid.UUID,
) (*point.Point, error) {
	wallet, err := repo.FindByUserID(ctx, userID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		if typ == point.HistoryTypeUse {
			return nil, shared.ErrInsufficientBalance
		}
		wallet = point.NewPoint(userID)
	case err != nil:
		return nil, err
	}

	switch typ {
	case point.HistoryTypeCharge:
		err = wallet.Charge(amount)
	case point.HistoryTypeUse:
		err = wallet.Use(amount)
	case point.HistoryTypeRefund:
		err = wallet.Refund(amount)
	case point.HistoryTypeReward:
		err = wallet.Reward(amount)
	default:
		return nil, fmt.Errorf("unknown point operation %q", typ)
	}
	if err != nil {
		return nil, err
	}

	if err := repo.Save(ctx, wallet); err != nil {
		return nil, err
	}
	if err := repo.AppendHistory(ctx, point.NewHistory(wallet, typ, amount, referenceID)); err != nil {
		return nil, err
	}
	return wallet, nil
}

func toAmount(v int64) (valueobject.Amount, error) {
	a, err := valueobject.NewAmount(v)
	if err != nil || a.IsZero() {
		return valueobject.Amount{}, shared.NewDomainError("INVALID_AMOUNT", "Amount must be greater than 0")
	}
	return a, nil
}
