package point

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/point"
)

// BalanceDTO is a wallet balance
type BalanceDTO struct {
	UserID    uuid.UUID `json:"user_id"`
	Amount    int64     `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryDTO is one balance change
type HistoryDTO struct {
	ID           uuid.UUID  `json:"id"`
	Type         string     `json:"type"`
	Amount       int64      `json:"amount"`
	BalanceAfter int64      `json:"balance_after"`
	ReferenceID  *uuid.UUID `json:"reference_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ToBalanceDTO converts a wallet
func ToBalanceDTO(p *point.Point) *BalanceDTO {
	return &BalanceDTO{
		UserID:    p.UserID,
		Amount:    p.Amount.Value(),
		UpdatedAt: p.UpdatedAt,
	}
}

func toHistoryDTO(h *point.History) HistoryDTO {
	return HistoryDTO{
		ID:           h.ID,
		Type:         string(h.Type),
		Amount:       h.Amount.Value(),
		BalanceAfter: h.BalanceAfter.Value(),
		ReferenceID:  h.ReferenceID,
		CreatedAt:    h.CreatedAt,
	}
}
