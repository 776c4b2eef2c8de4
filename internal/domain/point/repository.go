package point

import (
	"context"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// PointRepository defines the interface for point wallet persistence
type PointRepository interface {
	// FindByUserID returns the wallet, or NOT_FOUND if the user never had one
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Point, error)

	// Save inserts a new wallet (Version 1) or updates one with
	// WHERE version = Version-1, failing with OPTIMISTIC_LOCK_FAILED on conflict
	Save(ctx context.Context, p *Point) error

	// AppendHistory records a balance change
	AppendHistory(ctx context.Context, h *History) error

	// FindHistory lists a user's balance changes, newest first
	FindHistory(ctx context.Context, userID uuid.UUID, page shared.PageRequest) ([]*History, int64, error)
}
