package payment

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyStatus is the state of a payment request key
type IdempotencyStatus string

const (
	IdempotencyProcessing IdempotencyStatus = "PROCESSING"
	IdempotencySuccess    IdempotencyStatus = "SUCCESS"
	IdempotencyFailed     IdempotencyStatus = "FAILED"
)

// SystemErrorMessage is stored for failures that are not business rule violations
const SystemErrorMessage = "system error"

// Idempotency records the outcome of a payment request key
type Idempotency struct {
	Key          string
	UserID       uuid.UUID
	PaymentID    *uuid.UUID
	Status       IdempotencyStatus
	ResultData   string
	ErrorMessage string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// NewProcessingIdempotency claims a key for a user
func NewProcessingIdempotency(key string, userID uuid.UUID) *Idempotency {
	return &Idempotency{
		Key:       key,
		UserID:    userID,
		Status:    IdempotencyProcessing,
		CreatedAt: time.Now(),
	}
}

// IsProcessing reports whether the request is still in flight
func (i *Idempotency) IsProcessing() bool {
	return i.Status == IdempotencyProcessing
}

// IsSuccess reports whether the request completed
func (i *Idempotency) IsSuccess() bool {
	return i.Status == IdempotencySuccess
}

// IsFailed reports whether the request failed
func (i *Idempotency) IsFailed() bool {
	return i.Status == IdempotencyFailed
}

// SetResult records a successful outcome
func (i *Idempotency) SetResult(paymentID uuid.UUID, resultData string) {
	now := time.Now()
	i.PaymentID = &paymentID
	i.ResultData = resultData
	i.Status = IdempotencySuccess
	i.CompletedAt = &now
}

// MarkFailed records a failed outcome
func (i *Idempotency) MarkFailed(message string) {
	now := time.Now()
	i.ErrorMessage = message
	i.Status = IdempotencyFailed
	i.CompletedAt = &now
}
