package ranking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type distinguishes ranking windows
type Type string

const (
	TypeRealtime Type = "REALTIME"
	TypeWeekly   Type = "WEEKLY"
)

// DefaultTopN is how many schedules a ranking shows
const DefaultTopN = 5

// ConcertRanking is one ranked schedule
type ConcertRanking struct {
	ScheduleID   uuid.UUID
	ConcertID    uuid.UUID
	ConcertTitle string
	PaymentCount int64
	Rank         int
	Type         Type
}

// Score is a raw ranking entry before enrichment with concert data
type Score struct {
	ScheduleID   uuid.UUID
	PaymentCount int64
}

// Board stores ranking scores
type Board interface {
	// IncrementRealtime adds one payment to a schedule's realtime score
	IncrementRealtime(ctx context.Context, scheduleID uuid.UUID) error
	// Top returns the highest scores, best first
	Top(ctx context.Context, typ Type, n int) ([]Score, error)
	// ReplaceWeekly atomically swaps the weekly ranking
	ReplaceWeekly(ctx context.Context, scores []Score) error
}

// PaymentCountQuery aggregates confirmed payments per schedule
type PaymentCountQuery interface {
	// CountPaymentsSince counts distinct payments of CONFIRMED reservations per schedule
	CountPaymentsSince(ctx context.Context, since time.Time) ([]Score, error)
}
