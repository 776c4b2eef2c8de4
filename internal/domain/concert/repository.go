package concert

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// ConcertRepository defines the interface for concert persistence
type ConcertRepository interface {
	// Save creates a concert together with its schedules
	Save(ctx context.Context, concert *Concert) error

	// FindByID loads a concert with its schedules
	FindByID(ctx context.Context, id uuid.UUID) (*Concert, error)

	// FindAll lists concerts without schedules, newest start date first
	FindAll(ctx context.Context, page shared.PageRequest) ([]*Concert, int64, error)

	// FindByIDs loads concerts without schedules, keyed by ID
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Concert, error)
}

// ScheduleRepository defines the interface for schedule persistence
type ScheduleRepository interface {
	// FindByID finds a schedule by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Schedule, error)

	// FindByConcertAndDate finds the schedule of a concert on a given day
	FindByConcertAndDate(ctx context.Context, concertID uuid.UUID, date time.Time) (*Schedule, error)

	// FindByIDs loads schedules keyed by ID
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Schedule, error)

	// UpdateSeats persists seat counts using the schedule version for optimistic locking
	UpdateSeats(ctx context.Context, schedule *Schedule) error
}
