package concert

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
)

// DateLayout is the wire format for schedule dates
const DateLayout = "2006-01-02"

// Status is a concert's lifecycle relative to a given day
type Status string

const (
	StatusPrepare Status = "PREPARE"
	StatusOngoing Status = "ONGOING"
	StatusEnded   Status = "ENDED"
)

// Concert is the aggregate root for a run of performances
type Concert struct {
	shared.BaseAggregateRoot
	Title       string
	Description string
	MinPrice    valueobject.Amount
	StartDate   time.Time
	EndDate     time.Time
	Schedules   []*Schedule
}

// DateOf truncates t to its calendar day in UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC day
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, shared.NewDomainError("INVALID_DATE", "Date must be formatted as YYYY-MM-DD")
	}
	return d, nil
}

// NewConcert creates a concert running from startDate to endDate inclusive
func NewConcert(title, description string, minPrice valueobject.Amount, startDate, endDate time.Time) (*Concert, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_CONCERT", "Concert title cannot be empty")
	}
	startDate, endDate = DateOf(startDate), DateOf(endDate)
	if endDate.Before(startDate) {
		return nil, shared.NewDomainError("INVALID_CONCERT", "Concert end date cannot be before start date")
	}
	return &Concert{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             title,
		Description:       strings.TrimSpace(description),
		MinPrice:          minPrice,
		StartDate:         startDate,
		EndDate:           endDate,
		Schedules:         make([]*Schedule, 0),
	}, nil
}

// StatusAt returns PREPARE before the start day, ONGOING through the end day, ENDED afterwards
func (c *Concert) StatusAt(now time.Time) Status {
	today := DateOf(now)
	if today.Before(c.StartDate) {
		return StatusPrepare
	}
	if !today.After(c.EndDate) {
		return StatusOngoing
	}
	return StatusEnded
}

// covers reports whether date lies within the concert's run
func (c *Concert) covers(date time.Time) bool {
	date = DateOf(date)
	return !date.Before(c.StartDate) && !date.After(c.EndDate)
}

// AddSchedule adds a performance day, keeping schedules sorted by date
func (c *Concert) AddSchedule(date time.Time, venueID uuid.UUID, totalSeats int) (*Schedule, error) {
	if !c.covers(date) {
		return nil, shared.NewDomainError("INVALID_SCHEDULE", "Schedule date must be within the concert's start and end dates")
	}
	for _, s := range c.Schedules {
		if s.Date.Equal(DateOf(date)) {
			return nil, shared.NewDomainError("DUPLICATE_SCHEDULE", "A schedule already exists for this date")
		}
	}
	schedule, err := NewSchedule(c.ID, date, venueID, totalSeats, totalSeats)
	if err != nil {
		return nil, err
	}
	c.Schedules = append(c.Schedules, schedule)
	c.sortSchedules()
	return schedule, nil
}

// SetSchedules replaces the loaded schedules, validating their dates
func (c *Concert) SetSchedules(schedules []*Schedule) error {
	for _, s := range schedules {
		if !c.covers(s.Date) {
			return shared.NewDomainError("INVALID_SCHEDULE", "Schedule date must be within the concert's start and end dates")
		}
	}
	c.Schedules = schedules
	c.sortSchedules()
	return nil
}

// GetSchedule returns the schedule on the given day
func (c *Concert) GetSchedule(date time.Time) (*Schedule, error) {
	date = DateOf(date)
	for _, s := range c.Schedules {
		if s.Date.Equal(date) {
			return s, nil
		}
	}
	return nil, shared.NewDomainError("NOT_FOUND", "No schedule exists for this date")
}

func (c *Concert) sortSchedules() {
	sort.Slice(c.Schedules, func(i, j int) bool {
		return c.Schedules[i].Date.Before(c.Schedules[j].Date)
	})
}
