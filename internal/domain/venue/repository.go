package venue

import (
	"context"

	"github.com/google/uuid"
)

// VenueRepository defines the interface for venue persistence
type VenueRepository interface {
	// Save creates or replaces a venue and its seat map
	Save(ctx context.Context, venue *Venue) error

	// FindByID returns the venue without seats
	FindByID(ctx context.Context, id uuid.UUID) (*Venue, error)

	// FindByIDWithSeats returns the venue with its seat map
	FindByIDWithSeats(ctx context.Context, id uuid.UUID) (*Venue, error)

	// FindByIDs returns venues without seats, keyed by ID
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Venue, error)

	// FindSeatsByIDs returns the requested seats; missing IDs are omitted
	FindSeatsByIDs(ctx context.Context, seatIDs []uuid.UUID) ([]Seat, error)
}
