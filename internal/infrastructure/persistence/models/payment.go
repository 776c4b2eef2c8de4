package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/payment"
)

// PaymentModel is the persistence model for the Payment aggregate.
type PaymentModel struct {
	AggregateModel
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index"`
	ScheduleID     uuid.UUID      `gorm:"type:uuid;not null;index"`
	ReservationID  *uuid.UUID     `gorm:"type:uuid"`
	OriginalAmount int64          `gorm:"not null"`
	DiscountAmount int64          `gorm:"not null;default:0"`
	PaidAmount     int64          `gorm:"not null"`
	Status         payment.Status `gorm:"type:varchar(20);not null"`
	RefundedAt     *time.Time
	RefundReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *payment.Payment {
	return &payment.Payment{
		BaseAggregateRoot: m.ToAggregateRoot(),
		UserID:            m.UserID,
		ScheduleID:        m.ScheduleID,
		ReservationID:     m.ReservationID,
		OriginalAmount:    amountOrZero(m.OriginalAmount),
		DiscountAmount:    amountOrZero(m.DiscountAmount),
		PaidAmount:        amountOrZero(m.PaidAmount),
		Status:            m.Status,
		RefundedAt:        m.RefundedAt,
		RefundReason:      m.RefundReason,
	}
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *payment.Payment) *PaymentModel {
	m := &PaymentModel{
		UserID:         p.UserID,
		ScheduleID:     p.ScheduleID,
		ReservationID:  p.ReservationID,
		OriginalAmount: p.OriginalAmount.Value(),
		DiscountAmount: p.DiscountAmount.Value(),
		PaidAmount:     p.PaidAmount.Value(),
		Status:         p.Status,
		RefundedAt:     p.RefundedAt,
		RefundReason:   p.RefundReason,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}

// PaymentIdempotencyModel records the outcome of a payment request key.
type PaymentIdempotencyModel struct {
	IdempotencyKey string                    `gorm:"type:varchar(100);primaryKey"`
	UserID         uuid.UUID                 `gorm:"type:uuid;not null;index"`
	PaymentID      *uuid.UUID                `gorm:"type:uuid"`
	Status         payment.IdempotencyStatus `gorm:"type:varchar(20);not null"`
	ResultData     string                    `gorm:"type:text"`
	ErrorMessage   string                    `gorm:"type:varchar(500)"`
	CreatedAt      time.Time                 `gorm:"not null"`
	CompletedAt    *time.Time
}

// TableName returns the table name for GORM
func (PaymentIdempotencyModel) TableName() string {
	return "payment_idempotency"
}

// ToDomain converts the persistence model to a domain Idempotency
func (m *PaymentIdempotencyModel) ToDomain() *payment.Idempotency {
	return &payment.Idempotency{
		Key:          m.IdempotencyKey,
		UserID:       m.UserID,
		PaymentID:    m.PaymentID,
		Status:       m.Status,
		ResultData:   m.ResultData,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
		CompletedAt:  m.CompletedAt,
	}
}

// PaymentIdempotencyModelFromDomain creates a persistence model from a domain Idempotency
func PaymentIdempotencyModelFromDomain(i *payment.Idempotency) *PaymentIdempotencyModel {
	return &PaymentIdempotencyModel{
		IdempotencyKey: i.Key,
		UserID:         i.UserID,
		PaymentID:      i.PaymentID,
		Status:         i.Status,
		ResultData:     i.ResultData,
		ErrorMessage:   i.ErrorMessage,
		CreatedAt:      i.CreatedAt,
		CompletedAt:    i.CompletedAt,
	}
}
