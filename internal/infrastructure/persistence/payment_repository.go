package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/payment"
	"github.com/roovies/concert-reservation/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements payment.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Save inserts a payment
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(p)).Error
}

// Update persists a status change with optimistic locking
func (r *GormPaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	m := models.PaymentModelFromDomain(p)
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", p.ID, p.Version-1).
		Updates(map[string]any{
			"reservation_id": m.ReservationID,
			"status":         m.Status,
			"refunded_at":    m.RefundedAt,
			"refund_reason":  m.RefundReason,
			"version":        m.Version,
			"updated_at":     m.UpdatedAt,
		})
	return optimisticResult(result)
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var m models.PaymentModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "Payment not found")
	}
	return m.ToDomain(), nil
}

var _ payment.PaymentRepository = (*GormPaymentRepository)(nil)

// GormPaymentIdempotencyRepository implements payment.IdempotencyRepository using GORM
type GormPaymentIdempotencyRepository struct {
	db *gorm.DB
}

// NewGormPaymentIdempotencyRepository creates a new GormPaymentIdempotencyRepository
func NewGormPaymentIdempotencyRepository(db *gorm.DB) *GormPaymentIdempotencyRepository {
	return &GormPaymentIdempotencyRepository{db: db}
}

// TryInsert claims a key with INSERT ... ON CONFLICT DO NOTHING.
// Returns false when another request already owns the key.
func (r *GormPaymentIdempotencyRepository) TryInsert(ctx context.Context, i *payment.Idempotency) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "idempotency_key"}}, DoNothing: true}).
		Create(models.PaymentIdempotencyModelFromDomain(i))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FindByKey loads a claimed key
func (r *GormPaymentIdempotencyRepository) FindByKey(ctx context.Context, key string) (*payment.Idempotency, error) {
	var m models.PaymentIdempotencyModel
	if err := r.db.WithContext(ctx).First(&m, "idempotency_key = ?", key).Error; err != nil {
		return nil, notFound(err, "Idempotency key not found")
	}
	return m.ToDomain(), nil
}

// Update stores the final outcome of a key
func (r *GormPaymentIdempotencyRepository) Update(ctx context.Context, i *payment.Idempotency) error {
	m := models.PaymentIdempotencyModelFromDomain(i)
	result := r.db.WithContext(ctx).
		Model(&models.PaymentIdempotencyModel{}).
		Where("idempotency_key = ?", i.Key).
		Updates(map[string]any{
			"payment_id":    m.PaymentID,
			"status":        m.Status,
			"result_data":   m.ResultData,
			"error_message": m.ErrorMessage,
			"completed_at":  m.CompletedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "Idempotency key not found")
	}
	return nil
}

var _ payment.IdempotencyRepository = (*GormPaymentIdempotencyRepository)(nil)
