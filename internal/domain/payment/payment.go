package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
)

// AmountUnit is the granularity every price and paid amount must respect
const AmountUnit = 100

// Status is the lifecycle state of a payment
type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusRefunded Status = "REFUNDED"
)

// Payment is the aggregate root for a point payment on held seats
type Payment struct {
	shared.BaseAggregateRoot
	UserID         uuid.UUID
	ScheduleID     uuid.UUID
	ReservationID  *uuid.UUID
	OriginalAmount valueobject.Amount
	DiscountAmount valueobject.Amount
	PaidAmount     valueobject.Amount
	Status         Status
	RefundedAt     *time.Time
	RefundReason   string
}

// NewPayment creates a successful payment of paidAmount against originalAmount
func NewPayment(userID, scheduleID uuid.UUID, originalAmount, paidAmount valueobject.Amount) (*Payment, error) {
	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		ScheduleID:        scheduleID,
		OriginalAmount:    originalAmount,
		DiscountAmount:    valueobject.ZeroAmount(),
		PaidAmount:        paidAmount,
		Status:            StatusSuccess,
	}
	if err := p.validateAmounts(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Payment) validateAmounts() error {
	if !p.OriginalAmount.IsMultipleOf(AmountUnit) {
		return shared.NewDomainError("INVALID_AMOUNT", "Original amount must be in units of 100 won")
	}
	if p.PaidAmount.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Paid amount cannot be 0")
	}
	if !p.PaidAmount.IsMultipleOf(AmountUnit) {
		return shared.NewDomainError("INVALID_AMOUNT", "Paid amount must be in units of 100 won")
	}
	if p.OriginalAmount.LessThan(p.PaidAmount) {
		return shared.NewDomainError("INVALID_AMOUNT", "Paid amount cannot exceed the original amount")
	}
	return nil
}

// Discount reduces the paid amount
func (p *Payment) Discount(discount valueobject.Amount) error {
	paid, err := p.PaidAmount.Subtract(discount)
	if err != nil {
		return shared.NewDomainError("INVALID_AMOUNT", "Discount cannot exceed the paid amount")
	}
	p.DiscountAmount = discount
	p.PaidAmount = paid
	p.UpdatedAt = time.Now()
	return nil
}

// AttachReservation links the reservation created by this payment
func (p *Payment) AttachReservation(reservationID uuid.UUID) {
	p.ReservationID = &reservationID
}

// Refund moves a successful payment to REFUNDED
func (p *Payment) Refund(reason string) error {
	if p.Status != StatusSuccess {
		return shared.NewDomainError("INVALID_STATE", "Only successful payments can be refunded")
	}
	now := time.Now()
	p.Status = StatusRefunded
	p.RefundedAt = &now
	p.RefundReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentRefundedEvent(p))
	return nil
}

// IsOwnedBy reports whether userID made the payment
func (p *Payment) IsOwnedBy(userID uuid.UUID) bool {
	return p.UserID == userID
}
