package persistence

import (
	"context"
	"errors"

	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/domain/payment"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"gorm.io/gorm"
)

// errNoOutbox is returned when events are written through a scope built without an outbox
var errNoOutbox = errors.New("transaction scope has no outbox configured")

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormTransactionScope creates a scope. outbox may be nil when the
// unit of work never emits events.
func NewGormTransactionScope(db *gorm.DB, outbox shared.OutboxEventSaver) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox}
}

// Execute runs fn within a database transaction.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appshared.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	})
}

type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

func (r *gormTransactionalRepositories) PointRepo() point.PointRepository {
	return NewGormPointRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRepo() payment.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) IdempotencyRepo() payment.IdempotencyRepository {
	return NewGormPaymentIdempotencyRepository(r.tx)
}

func (r *gormTransactionalRepositories) ReservationRepo() reservation.ReservationRepository {
	return NewGormReservationRepository(r.tx)
}

func (r *gormTransactionalRepositories) ScheduleRepo() concert.ScheduleRepository {
	return NewGormScheduleRepository(r.tx)
}

func (r *gormTransactionalRepositories) Outbox() appshared.OutboxWriter {
	return txOutbox{tx: r.tx, saver: r.outbox}
}

// txOutbox binds the outbox saver to the current transaction
type txOutbox struct {
	tx    *gorm.DB
	saver shared.OutboxEventSaver
}

func (o txOutbox) Write(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	if o.saver == nil {
		return errNoOutbox
	}
	return o.saver.SaveEvents(ctx, o.tx, events...)
}

var (
	_ appshared.TransactionScope          = (*GormTransactionScope)(nil)
	_ appshared.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
