package payment

import (
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// Aggregate type constant for Payment
const AggregateTypePayment = "Payment"

// Payment domain event types
const (
	EventTypePaymentCompleted     = "PaymentCompleted"
	EventTypeReservationCompleted = "ReservationCompleted"
	EventTypePaymentRefunded      = "PaymentRefunded"
)

// PaymentCompletedEvent is published once points are deducted and the reservation confirmed
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID   `json:"payment_id"`
	UserID         uuid.UUID   `json:"user_id"`
	ScheduleIDs    []uuid.UUID `json:"schedule_ids"`
	OriginalAmount int64       `json:"original_amount"`
	PaidAmount     int64       `json:"paid_amount"`
}

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(p *Payment, scheduleIDs []uuid.UUID) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCompleted, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		UserID:          p.UserID,
		ScheduleIDs:     scheduleIDs,
		OriginalAmount:  p.OriginalAmount.Value(),
		PaidAmount:      p.PaidAmount.Value(),
	}
}

// ReservationCompletedEvent starts the reward saga for a confirmed reservation
type ReservationCompletedEvent struct {
	shared.BaseDomainEvent
	ReservationID  uuid.UUID `json:"reservation_id"`
	PaymentID      uuid.UUID `json:"payment_id"`
	UserID         uuid.UUID `json:"user_id"`
	OriginalAmount int64     `json:"original_amount"`
	PaidAmount     int64     `json:"paid_amount"`
}

// NewReservationCompletedEvent creates a new ReservationCompletedEvent
func NewReservationCompletedEvent(p *Payment, reservationID uuid.UUID) *ReservationCompletedEvent {
	return &ReservationCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationCompleted, AggregateTypePayment, p.ID),
		ReservationID:   reservationID,
		PaymentID:       p.ID,
		UserID:          p.UserID,
		OriginalAmount:  p.OriginalAmount.Value(),
		PaidAmount:      p.PaidAmount.Value(),
	}
}

// PaymentRefundedEvent is published when a payment is refunded
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	PaymentID    uuid.UUID `json:"payment_id"`
	UserID       uuid.UUID `json:"user_id"`
	RefundAmount int64     `json:"refund_amount"`
	Reason       string    `json:"reason"`
}

// NewPaymentRefundedEvent creates a new PaymentRefundedEvent
func NewPaymentRefundedEvent(p *Payment) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRefunded, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		UserID:          p.UserID,
		RefundAmount:    p.PaidAmount.Value(),
		Reason:          p.RefundReason,
	}
}
