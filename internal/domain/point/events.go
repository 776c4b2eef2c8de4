package point

import (
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// Aggregate type constant for Point
const AggregateTypePoint = "Point"

// Point domain event types
const (
	EventTypePointRewardCompleted = "PointRewardCompleted"
	EventTypePointRewardFailed    = "PointRewardFailed"
	EventTypeCompensatePayment    = "CompensatePayment"
)

// PointRewardCompletedEvent is published after reward points are credited
type PointRewardCompletedEvent struct {
	shared.BaseDomainEvent
	PaymentID    uuid.UUID `json:"payment_id"`
	UserID       uuid.UUID `json:"user_id"`
	RewardAmount int64     `json:"reward_amount"`
	TotalAmount  int64     `json:"total_amount"`
}

// NewPointRewardCompletedEvent creates a new PointRewardCompletedEvent
func NewPointRewardCompletedEvent(paymentID, userID uuid.UUID, reward, total int64) *PointRewardCompletedEvent {
	return &PointRewardCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePointRewardCompleted, AggregateTypePoint, userID),
		PaymentID:       paymentID,
		UserID:          userID,
		RewardAmount:    reward,
		TotalAmount:     total,
	}
}

// PointRewardFailedEvent is published when a reward could not be credited
type PointRewardFailedEvent struct {
	shared.BaseDomainEvent
	PaymentID    uuid.UUID `json:"payment_id"`
	UserID       uuid.UUID `json:"user_id"`
	RewardAmount int64     `json:"reward_amount"`
	Reason       string    `json:"reason"`
}

// NewPointRewardFailedEvent creates a new PointRewardFailedEvent
func NewPointRewardFailedEvent(paymentID, userID uuid.UUID, reward int64, reason string) *PointRewardFailedEvent {
	return &PointRewardFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePointRewardFailed, AggregateTypePoint, userID),
		PaymentID:       paymentID,
		UserID:          userID,
		RewardAmount:    reward,
		Reason:          reason,
	}
}

// CompensatePaymentEvent asks the payment context to refund a payment
type CompensatePaymentEvent struct {
	shared.BaseDomainEvent
	PaymentID    uuid.UUID `json:"payment_id"`
	UserID       uuid.UUID `json:"user_id"`
	RefundAmount int64     `json:"refund_amount"`
	Reason       string    `json:"reason"`
}

// NewCompensatePaymentEvent creates a new CompensatePaymentEvent
func NewCompensatePaymentEvent(paymentID, userID uuid.UUID, refund int64, reason string) *CompensatePaymentEvent {
	return &CompensatePaymentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCompensatePayment, AggregateTypePoint, paymentID),
		PaymentID:       paymentID,
		UserID:          userID,
		RefundAmount:    refund,
		Reason:          reason,
	}
}
