package shared

import (
	"context"

	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/domain/payment"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// TransactionScope runs a unit of work in one database transaction.
// If fn returns an error the transaction is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to the current transaction.
// Events passed to Outbox are committed or discarded together with the data.
type TransactionalRepositories interface {
	PointRepo() point.PointRepository
	PaymentRepo() payment.PaymentRepository
	IdempotencyRepo() payment.IdempotencyRepository
	ReservationRepo() reservation.ReservationRepository
	ScheduleRepo() concert.ScheduleRepository
	Outbox() OutboxWriter
}

// OutboxWriter appends domain events to the transactional outbox
type OutboxWriter interface {
	Write(ctx context.Context, events ...shared.DomainEvent) error
}
