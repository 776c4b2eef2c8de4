package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/payment"
)

// PayInput is a request to pay for held seats with points
type PayInput struct {
	IdempotencyKey string
	UserID         uuid.UUID
	ScheduleID     uuid.UUID
	SeatIDs        []uuid.UUID
}

// RefundInput is a user-initiated cancellation
type RefundInput struct {
	PaymentID uuid.UUID
	UserID    uuid.UUID
	Reason    string
}

// PaymentDTO is a payment as returned to clients and stored as the
// idempotent result of Pay
type PaymentDTO struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	ScheduleID     uuid.UUID  `json:"schedule_id"`
	ReservationID  *uuid.UUID `json:"reservation_id,omitempty"`
	OriginalAmount int64      `json:"original_amount"`
	DiscountAmount int64      `json:"discount_amount"`
	PaidAmount     int64      `json:"paid_amount"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	RefundedAt     *time.Time `json:"refunded_at,omitempty"`
	RefundReason   string     `json:"refund_reason,omitempty"`
}

// ToPaymentDTO converts a payment
func ToPaymentDTO(p *payment.Payment) *PaymentDTO {
	return &PaymentDTO{
		ID:             p.ID,
		UserID:         p.UserID,
		ScheduleID:     p.ScheduleID,
		ReservationID:  p.ReservationID,
		OriginalAmount: p.OriginalAmount.Value(),
		DiscountAmount: p.DiscountAmount.Value(),
		PaidAmount:     p.PaidAmount.Value(),
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt,
		RefundedAt:     p.RefundedAt,
		RefundReason:   p.RefundReason,
	}
}
