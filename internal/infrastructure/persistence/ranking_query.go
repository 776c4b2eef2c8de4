package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/ranking"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"gorm.io/gorm"
)

// GormPaymentCountQuery implements ranking.PaymentCountQuery
type GormPaymentCountQuery struct {
	db *gorm.DB
}

// NewGormPaymentCountQuery creates a new GormPaymentCountQuery
func NewGormPaymentCountQuery(db *gorm.DB) *GormPaymentCountQuery {
	return &GormPaymentCountQuery{db: db}
}

type scheduleCountRow struct {
	ScheduleID   uuid.UUID
	PaymentCount int64
}

// CountPaymentsSince counts distinct payments per schedule for CONFIRMED
// reservations created at or after since, highest count first
func (q *GormPaymentCountQuery) CountPaymentsSince(ctx context.Context, since time.Time) ([]ranking.Score, error) {
	var rows []scheduleCountRow
	err := q.db.WithContext(ctx).Raw(`
		SELECT d.schedule_id AS schedule_id, COUNT(DISTINCT r.payment_id) AS payment_count
		FROM reservation_details d
		JOIN reservations r ON r.id = d.reservation_id
		WHERE r.status = ? AND r.created_at >= ?
		GROUP BY d.schedule_id
		ORDER BY payment_count DESC, d.schedule_id ASC`,
		reservation.StatusConfirmed, since,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	scores := make([]ranking.Score, 0, len(rows))
	for _, r := range rows {
		scores = append(scores, ranking.Score{ScheduleID: r.ScheduleID, PaymentCount: r.PaymentCount})
	}
	return scores, nil
}

var _ ranking.PaymentCountQuery = (*GormPaymentCountQuery)(nil)
