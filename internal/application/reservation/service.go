// Package reservation implements seat holds and reservation queries.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	venueapp "github.com/roovies/concert-reservation/internal/application/venue"
	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/venue"
	"github.com/roovies/concert-reservation/internal/infrastructure/lock"
	"github.com/roovies/concert-reservation/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SeatLocker takes a set of distributed locks at once
type SeatLocker interface {
	AcquireAll(ctx context.Context, keys []string, wait, lease time.Duration) (lock.Locks, error)
}

// Config holds seat hold timing
type Config struct {
	HoldTTL   time.Duration
	LockWait  time.Duration
	LockLease time.Duration
}

// DefaultConfig holds seats for 15 minutes behind 3s/10s seat locks
func DefaultConfig() Config {
	return Config{
		HoldTTL:   15 * time.Minute,
		LockWait:  3 * time.Second,
		LockLease: 10 * time.Second,
	}
}

// Service handles seat holds and reservation lookups
type Service struct {
	holds           reservation.HoldStore
	idempotency     reservation.HoldIdempotencyStore
	locker          SeatLocker
	scope           appshared.TransactionScope
	reservationRepo reservation.ReservationRepository
	scheduleRepo    concert.ScheduleRepository
	venueRepo       venue.VenueRepository
	config          Config
	metrics         appshared.Metrics
	logger          *zap.Logger
}

// NewService creates a new reservation service
func NewService(
	holds reservation.HoldStore,
	idempotency reservation.HoldIdempotencyStore,
	locker SeatLocker,
	scope appshared.TransactionScope,
	reservationRepo reservation.ReservationRepository,
	scheduleRepo concert.ScheduleRepository,
	venueRepo venue.VenueRepository,
	config Config,
	metrics appshared.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		holds:           holds,
		idempotency:     idempotency,
		locker:          locker,
		scope:           scope,
		reservationRepo: reservationRepo,
		scheduleRepo:    scheduleRepo,
		venueRepo:       venueRepo,
		config:          config,
		metrics:         appshared.MetricsOrNop(metrics),
		logger:          logger,
	}
}

// SeatLockKey is the distributed lock guarding one seat of a schedule
func SeatLockKey(scheduleID, seatID uuid.UUID) string {
	return fmt.Sprintf("lock:seat:%s:%s", scheduleID, seatID)
}

// HoldSeats temporarily holds seats for a user. Requests are de-duplicated
// by idempotency key: a retry while the first is running fails with
// DUPLICATE_REQUEST, and a retry after it finished gets the stored result.
func (s *Service) HoldSeats(ctx context.Context, in HoldSeatsInput) (*reservation.HoldSeat, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reservation", "hold_seats")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, in.UserID.String(),
		telemetry.SpanAttrScheduleID, in.ScheduleID.String(),
		telemetry.SpanAttrSeatCount, len(in.SeatIDs),
	)

	var (
		result *reservation.HoldSeat
		opErr  error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("hold_seats"), func(c context.Context) {
		result, opErr = s.holdSeats(c, in)
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		s.metrics.SeatHold(ctx, holdResult(opErr), len(in.SeatIDs))
		return nil, opErr
	}
	s.metrics.SeatHold(ctx, appshared.ResultSuccess, len(result.SeatIDs))
	return result, nil
}

func holdResult(err error) string {
	switch {
	case errors.Is(err, shared.ErrDuplicateRequest):
		return appshared.ResultDuplicate
	case errors.Is(err, shared.ErrSeatUnavailable), errors.Is(err, shared.ErrLockTimeout):
		return appshared.ResultUnavailable
	default:
		return appshared.ResultFailed
	}
}

func (s *Service) holdSeats(ctx context.Context, in HoldSeatsInput) (*reservation.HoldSeat, error) {
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Idempotency-Key header is required")
	}
	claimed, err := s.idempotency.TryProcess(ctx, key)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return s.replay(ctx, key)
	}

	result, err := s.hold(ctx, in)
	if err != nil {
		s.releaseKey(ctx, key)
		return nil, err
	}
	if err := s.idempotency.SaveResult(ctx, key, result); err != nil {
		// the holds stand; a retry with this key takes the already-held path
		s.logger.Error("Failed to store hold result", zap.String("idempotency_key", key), zap.Error(err))
		s.releaseKey(ctx, key)
	}
	return result, nil
}

func (s *Service) releaseKey(ctx context.Context, key string) {
	if err := s.idempotency.RemoveProcessing(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("Failed to clear hold idempotency marker", zap.String("idempotency_key", key), zap.Error(err))
	}
}

func (s *Service) replay(ctx context.Context, key string) (*reservation.HoldSeat, error) {
	processing, err := s.idempotency.IsProcessing(ctx, key)
	if err != nil {
		return nil, err
	}
	if processing {
		return nil, shared.ErrDuplicateRequest
	}
	stored, err := s.idempotency.FindResult(ctx, key)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, shared.ErrConcurrencyConflict
	}
	s.logger.Debug("Replaying stored hold result", zap.String("idempotency_key", key))
	return stored, nil
}

func (s *Service) hold(ctx context.Context, in HoldSeatsInput) (*reservation.HoldSeat, error) {
	seatIDs := reservation.NormalizeSeatIDs(in.SeatIDs)
	if len(seatIDs) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one seat is required")
	}

	if existing, err := s.GetHeldSeats(ctx, in.ScheduleID, seatIDs, in.UserID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	schedule, err := s.scheduleRepo.FindByID(ctx, in.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.IsSoldOut() {
		return nil, shared.ErrSeatUnavailable
	}

	keys := make([]string, len(seatIDs))
	for i, seatID := range seatIDs {
		keys[i] = SeatLockKey(in.ScheduleID, seatID)
	}
	locks, err := s.locker.AcquireAll(ctx, keys, s.config.LockWait, s.config.LockLease)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, shared.ErrLockTimeout) {
			return nil, err
		}
		return nil, shared.ErrLockTimeout.WithCause(err)
	}
	defer func() {
		if err := locks.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release seat locks", zap.Error(err))
		}
	}()

	reserved, err := s.reservationRepo.FindReservedSeatIDs(ctx, in.ScheduleID)
	if err != nil {
		return nil, err
	}
	if overlaps(reserved, seatIDs) {
		return nil, shared.ErrSeatUnavailable
	}

	ok, err := s.holds.HoldAll(ctx, in.ScheduleID, seatIDs, in.UserID, s.config.HoldTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.ErrSeatUnavailable
	}

	s.logger.Info("Seats held",
		zap.String("schedule_id", in.ScheduleID.String()),
		zap.String("user_id", in.UserID.String()),
		zap.Int("seats", len(seatIDs)),
	)
	return &reservation.HoldSeat{
		ScheduleID: in.ScheduleID,
		SeatIDs:    seatIDs,
		UserID:     in.UserID,
		TTLSeconds: int64(s.config.HoldTTL / time.Second),
	}, nil
}

func overlaps(reserved, requested []uuid.UUID) bool {
	if len(reserved) == 0 {
		return false
	}
	set := make(map[uuid.UUID]struct{}, len(reserved))
	for _, id := range reserved {
		set[id] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// ReleaseHolds drops the user's holds on the given seats. Seats held by
// someone else are left alone.
func (s *Service) ReleaseHolds(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (int, error) {
	seatIDs = reservation.NormalizeSeatIDs(seatIDs)
	if len(seatIDs) == 0 {
		return 0, nil
	}
	released, err := s.holds.Release(ctx, scheduleID, seatIDs, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Seat holds released",
		zap.String("schedule_id", scheduleID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("released", released),
	)
	return released, nil
}

// GetHeldSeats returns the hold when the user holds every requested seat,
// or nil otherwise
func (s *Service) GetHeldSeats(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (*reservation.HoldSeat, error) {
	seatIDs = reservation.NormalizeSeatIDs(seatIDs)
	if len(seatIDs) == 0 {
		return nil, nil
	}
	held, err := s.holds.IsHeldByUser(ctx, scheduleID, seatIDs, userID)
	if err != nil || !held {
		return nil, err
	}
	return s.snapshot(ctx, scheduleID, seatIDs, userID)
}

// GetMyHeldSeats returns every seat the user currently holds on a schedule,
// or nil when there are none
func (s *Service) GetMyHeldSeats(ctx context.Context, userID, scheduleID uuid.UUID) (*reservation.HoldSeat, error) {
	holders, err := s.holds.HeldSeatIDs(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	var mine []uuid.UUID
	for seatID, holder := range holders {
		if holder == userID {
			mine = append(mine, seatID)
		}
	}
	if len(mine) == 0 {
		return nil, nil
	}
	return s.snapshot(ctx, scheduleID, reservation.NormalizeSeatIDs(mine), userID)
}

func (s *Service) snapshot(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (*reservation.HoldSeat, error) {
	ttl, err := s.holds.TTLSeconds(ctx, scheduleID, seatIDs)
	if err != nil {
		return nil, err
	}
	hold := &reservation.HoldSeat{
		ScheduleID: scheduleID,
		SeatIDs:    seatIDs,
		UserID:     userID,
		TTLSeconds: ttl,
	}
	if hold.IsExpired() {
		return nil, nil
	}
	return hold, nil
}

// GetAvailableSeats lists the venue seats of a concert day that are neither
// reserved nor held
func (s *Service) GetAvailableSeats(ctx context.Context, concertID uuid.UUID, date string) (*AvailableSeatsDTO, error) {
	day, err := concert.ParseDate(date)
	if err != nil {
		return nil, err
	}
	schedule, err := s.scheduleRepo.FindByConcertAndDate(ctx, concertID, day)
	if err != nil {
		return nil, err
	}
	result := &AvailableSeatsDTO{
		ScheduleID: schedule.ID,
		Date:       schedule.Date.Format(concert.DateLayout),
		Seats:      []venueapp.SeatDTO{},
	}
	if schedule.IsSoldOut() {
		result.IsAllReserved = true
		return result, nil
	}

	v, err := s.venueRepo.FindByIDWithSeats(ctx, schedule.VenueID)
	if err != nil {
		return nil, err
	}
	reserved, err := s.reservationRepo.FindReservedSeatIDs(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}
	held, err := s.holds.HeldSeatIDs(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}
	taken := make(map[uuid.UUID]struct{}, len(reserved)+len(held))
	for _, id := range reserved {
		taken[id] = struct{}{}
	}
	for id := range held {
		taken[id] = struct{}{}
	}
	for _, seat := range v.Seats {
		if _, ok := taken[seat.ID]; !ok {
			result.Seats = append(result.Seats, venueapp.ToSeatDTO(seat))
		}
	}
	return result, nil
}

// ListMyReservations lists the user's reservations, newest first
func (s *Service) ListMyReservations(ctx context.Context, userID uuid.UUID) ([]ReservationDTO, error) {
	rows, err := s.reservationRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ReservationDTO, len(rows))
	for i, r := range rows {
		out[i] = ToReservationDTO(r)
	}
	return out, nil
}

// CreateReservation confirms seats for a payment in its own transaction
func (s *Service) CreateReservation(ctx context.Context, userID, paymentID, scheduleID uuid.UUID, seatIDs []uuid.UUID) (*ReservationDTO, error) {
	var created *reservation.Reservation
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		created, err = Confirm(ctx, repos, userID, paymentID, scheduleID, seatIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := ToReservationDTO(created)
	return &dto, nil
}

// CancelReservationByPayment cancels the reservation of a refunded payment
func (s *Service) CancelReservationByPayment(ctx context.Context, paymentID uuid.UUID) (*ReservationDTO, error) {
	var cancelled *reservation.Reservation
	err := s.scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		cancelled, err = CancelByPayment(ctx, repos, paymentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	dto := ToReservationDTO(cancelled)
	return &dto, nil
}
