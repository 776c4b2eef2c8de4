package testutil

import (
	"context"
	"sync"

	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/domain/payment"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// FakeScope runs units of work against the repositories in Repos without a
// database. Events written to the outbox are kept only when fn succeeds, so
// tests can assert commit and rollback behavior.
type FakeScope struct {
	Repos *FakeRepositories
	// Err, when set, is returned before fn runs
	Err error

	mu        sync.Mutex
	calls     int
	committed []shared.DomainEvent
}

// FakeRepositories holds the repositories handed to each unit of work.
// Unset repositories are nil.
type FakeRepositories struct {
	Points       point.PointRepository
	Payments     payment.PaymentRepository
	Idempotency  payment.IdempotencyRepository
	Reservations reservation.ReservationRepository
	Schedules    concert.ScheduleRepository
}

// NewFakeScope creates a scope over repos
func NewFakeScope(repos *FakeRepositories) *FakeScope {
	if repos == nil {
		repos = &FakeRepositories{}
	}
	return &FakeScope{Repos: repos}
}

// Execute implements appshared.TransactionScope
func (s *FakeScope) Execute(ctx context.Context, fn func(repos appshared.TransactionalRepositories) error) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	tx := &fakeTx{repos: s.Repos}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	s.committed = append(s.committed, tx.pending...)
	s.mu.Unlock()
	return nil
}

// Calls returns how many units of work were started
func (s *FakeScope) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// CommittedEvents returns outbox events of successful units of work
func (s *FakeScope) CommittedEvents() []shared.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.DomainEvent(nil), s.committed...)
}

// CommittedEventTypes returns the types of CommittedEvents in order
func (s *FakeScope) CommittedEventTypes() []string {
	events := s.CommittedEvents()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}

type fakeTx struct {
	repos   *FakeRepositories
	pending []shared.DomainEvent
}

func (t *fakeTx) PointRepo() point.PointRepository                   { return t.repos.Points }
func (t *fakeTx) PaymentRepo() payment.PaymentRepository             { return t.repos.Payments }
func (t *fakeTx) IdempotencyRepo() payment.IdempotencyRepository     { return t.repos.Idempotency }
func (t *fakeTx) ReservationRepo() reservation.ReservationRepository { return t.repos.Reservations }
func (t *fakeTx) ScheduleRepo() concert.ScheduleRepository           { return t.repos.Schedules }
func (t *fakeTx) Outbox() appshared.OutboxWriter                     { return t }

func (t *fakeTx) Write(_ context.Context, events ...shared.DomainEvent) error {
	t.pending = append(t.pending, events...)
	return nil
}

var _ appshared.TransactionScope = (*FakeScope)(nil)
