package point

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
)

// HistoryType classifies a balance change
type HistoryType string

const (
	HistoryTypeCharge HistoryType = "CHARGE"
	HistoryTypeUse    HistoryType = "USE"
	HistoryTypeRefund HistoryType = "REFUND"
	HistoryTypeReward HistoryType = "REWARD"
)

// History is an append-only record of a balance change
type History struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Type         HistoryType
	Amount       valueobject.Amount
	BalanceAfter valueobject.Amount
	ReferenceID  *uuid.UUID
	CreatedAt    time.Time
}

// NewHistory records a change that left the wallet at p's current balance
func NewHistory(p *Point, typ HistoryType, amount valueobject.Amount, referenceID *uuid.UUID) *History {
	return &History{
		ID:           uuid.New(),
		UserID:       p.UserID,
		Type:         typ,
		Amount:       amount,
		BalanceAfter: p.Amount,
		ReferenceID:  referenceID,
		CreatedAt:    time.Now(),
	}
}
