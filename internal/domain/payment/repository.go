package payment

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// Save creates a payment
	Save(ctx context.Context, p *Payment) error

	// Update persists a status change using optimistic locking
	Update(ctx context.Context, p *Payment) error

	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
}

// IdempotencyRepository persists payment request keys
type IdempotencyRepository interface {
	// TryInsert claims a key. Returns false when the key already exists.
	TryInsert(ctx context.Context, i *Idempotency) (bool, error)

	// FindByKey loads a claimed key
	FindByKey(ctx context.Context, key string) (*Idempotency, error)

	// Update stores the final outcome of a key
	Update(ctx context.Context, i *Idempotency) error
}
