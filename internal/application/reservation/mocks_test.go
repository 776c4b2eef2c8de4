package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/domain/venue"
	"github.com/roovies/concert-reservation/internal/infrastructure/lock"
	"github.com/stretchr/testify/mock"
)

type MockHoldStore struct {
	mock.Mock
}

func (m *MockHoldStore) HoldAll(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, scheduleID, seatIDs, userID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockHoldStore) IsHeldByUser(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, scheduleID, seatIDs, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockHoldStore) TTLSeconds(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID) (int64, error) {
	args := m.Called(ctx, scheduleID, seatIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockHoldStore) Release(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, scheduleID, seatIDs, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockHoldStore) HeldSeatIDs(ctx context.Context, scheduleID uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	args := m.Called(ctx, scheduleID)
	return args.Get(0).(map[uuid.UUID]uuid.UUID), args.Error(1)
}

type MockHoldIdempotencyStore struct {
	mock.Mock
}

func (m *MockHoldIdempotencyStore) TryProcess(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockHoldIdempotencyStore) IsProcessing(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockHoldIdempotencyStore) FindResult(ctx context.Context, key string) (*reservation.HoldSeat, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.HoldSeat), args.Error(1)
}

func (m *MockHoldIdempotencyStore) SaveResult(ctx context.Context, key string, result *reservation.HoldSeat) error {
	return m.Called(ctx, key, result).Error(0)
}

func (m *MockHoldIdempotencyStore) RemoveProcessing(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) AcquireAll(ctx context.Context, keys []string, wait, lease time.Duration) (lock.Locks, error) {
	args := m.Called(ctx, keys, wait, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(lock.Locks), args.Error(1)
}

type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Save(ctx context.Context, r *reservation.Reservation) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockReservationRepository) Update(ctx context.Context, r *reservation.Reservation) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*reservation.Reservation, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *MockReservationRepository) FindReservedSeatIDs(ctx context.Context, scheduleID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, scheduleID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*concert.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*concert.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) FindByConcertAndDate(ctx context.Context, concertID uuid.UUID, date time.Time) (*concert.Schedule, error) {
	args := m.Called(ctx, concertID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*concert.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*concert.Schedule, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[uuid.UUID]*concert.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) UpdateSeats(ctx context.Context, s *concert.Schedule) error {
	return m.Called(ctx, s).Error(0)
}

type MockVenueRepository struct {
	mock.Mock
}

func (m *MockVenueRepository) Save(ctx context.Context, v *venue.Venue) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockVenueRepository) FindByID(ctx context.Context, id uuid.UUID) (*venue.Venue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*venue.Venue), args.Error(1)
}

func (m *MockVenueRepository) FindByIDWithSeats(ctx context.Context, id uuid.UUID) (*venue.Venue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*venue.Venue), args.Error(1)
}

func (m *MockVenueRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*venue.Venue, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[uuid.UUID]*venue.Venue), args.Error(1)
}

func (m *MockVenueRepository) FindSeatsByIDs(ctx context.Context, seatIDs []uuid.UUID) ([]venue.Seat, error) {
	args := m.Called(ctx, seatIDs)
	return args.Get(0).([]venue.Seat), args.Error(1)
}
