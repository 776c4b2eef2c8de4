// Package concert serves the concert catalogue.
package concert

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
	"github.com/roovies/concert-reservation/internal/domain/venue"
	"go.uber.org/zap"
)

// ConcertDTO is a concert in list views
type ConcertDTO struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	MinPrice  int64     `json:"min_price"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Status    string    `json:"status"`
}

// ConcertDetailDTO adds the description, venue and schedules
type ConcertDetailDTO struct {
	ConcertDTO
	Description string        `json:"description"`
	VenueName   string        `json:"venue_name,omitempty"`
	Schedules   []ScheduleDTO `json:"schedules"`
}

// ScheduleDTO is one performance day
type ScheduleDTO struct {
	ID                uuid.UUID `json:"id"`
	Date              string    `json:"date"`
	TotalSeats        int       `json:"total_seats"`
	AvailableSeats    int       `json:"available_seats"`
	ReservationStatus string    `json:"reservation_status"`
	VenueID           uuid.UUID `json:"venue_id"`
}

// CreateConcertInput creates a concert with its schedules
type CreateConcertInput struct {
	Title       string
	Description string
	MinPrice    int64
	StartDate   time.Time
	EndDate     time.Time
	Schedules   []CreateScheduleInput
}

// CreateScheduleInput is a performance day at a venue. Seat count comes
// from the venue when TotalSeats is zero.
type CreateScheduleInput struct {
	Date       time.Time
	VenueID    uuid.UUID
	TotalSeats int
}

// Service handles concert queries
type Service struct {
	concertRepo concert.ConcertRepository
	venueRepo   venue.VenueRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new concert service
func NewService(concertRepo concert.ConcertRepository, venueRepo venue.VenueRepository, logger *zap.Logger) *Service {
	return &Service{
		concertRepo: concertRepo,
		venueRepo:   venueRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// ListConcerts returns a page of concerts with their status as of today
func (s *Service) ListConcerts(ctx context.Context, page shared.PageRequest) (shared.Paginated[ConcertDTO], error) {
	page = page.Normalize()
	concerts, total, err := s.concertRepo.FindAll(ctx, page)
	if err != nil {
		return shared.Paginated[ConcertDTO]{}, err
	}
	now := s.now()
	items := make([]ConcertDTO, len(concerts))
	for i, c := range concerts {
		items[i] = toConcertDTO(c, now)
	}
	return shared.NewPaginated(items, total, page.Page, page.PageSize), nil
}

// GetConcert returns a concert with its schedules and the venue of the
// opening day
func (s *Service) GetConcert(ctx context.Context, id uuid.UUID) (*ConcertDetailDTO, error) {
	c, err := s.concertRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := &ConcertDetailDTO{
		ConcertDTO:  toConcertDTO(c, s.now()),
		Description: c.Description,
		Schedules:   toScheduleDTOs(c.Schedules),
	}

	opening, err := c.GetSchedule(c.StartDate)
	switch {
	case err == nil:
		v, err := s.venueRepo.FindByID(ctx, opening.VenueID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if v != nil {
			dto.VenueName = v.Name
		}
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	return dto, nil
}

// ListSchedules returns a concert's performance days in date order
func (s *Service) ListSchedules(ctx context.Context, concertID uuid.UUID) ([]ScheduleDTO, error) {
	c, err := s.concertRepo.FindByID(ctx, concertID)
	if err != nil {
		return nil, err
	}
	return toScheduleDTOs(c.Schedules), nil
}

// CreateConcert validates and stores a concert with its schedules
func (s *Service) CreateConcert(ctx context.Context, input CreateConcertInput) (*ConcertDetailDTO, error) {
	minPrice, err := valueobject.NewAmount(input.MinPrice)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CONCERT", err.Error())
	}
	c, err := concert.NewConcert(input.Title, input.Description, minPrice, input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	for _, in := range input.Schedules {
		seats := in.TotalSeats
		if seats == 0 {
			v, err := s.venueRepo.FindByIDWithSeats(ctx, in.VenueID)
			if err != nil {
				return nil, err
			}
			seats = v.TotalSeats
		}
		if _, err := c.AddSchedule(in.Date, in.VenueID, seats); err != nil {
			return nil, err
		}
	}
	if err := s.concertRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("Concert created",
		zap.String("concert_id", c.ID.String()),
		zap.Int("schedules", len(c.Schedules)))
	return &ConcertDetailDTO{
		ConcertDTO:  toConcertDTO(c, s.now()),
		Description: c.Description,
		Schedules:   toScheduleDTOs(c.Schedules),
	}, nil
}

func toConcertDTO(c *concert.Concert, now time.Time) ConcertDTO {
	return ConcertDTO{
		ID:        c.ID,
		Title:     c.Title,
		MinPrice:  c.MinPrice.Value(),
		StartDate: c.StartDate.Format(concert.DateLayout),
		EndDate:   c.EndDate.Format(concert.DateLayout),
		Status:    string(c.StatusAt(now)),
	}
}

func toScheduleDTOs(schedules []*concert.Schedule) []ScheduleDTO {
	out := make([]ScheduleDTO, len(schedules))
	for i, s := range schedules {
		out[i] = ScheduleDTO{
			ID:                s.ID,
			Date:              s.Date.Format(concert.DateLayout),
			TotalSeats:        s.TotalSeats,
			AvailableSeats:    s.AvailableSeats,
			ReservationStatus: string(s.ReservationStatus),
			VenueID:           s.VenueID,
		}
	}
	return out
}
