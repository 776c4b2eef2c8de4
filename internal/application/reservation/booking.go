package reservation

import (
	"context"

	"github.com/google/uuid"
	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/domain/shared"
)

// Confirm creates a CONFIRMED reservation within repos' transaction and takes
// the seats off the schedule. Seats already reserved fail with SEAT_UNAVAILABLE;
// a concurrent booking of the same schedule fails the versioned seat update.
func Confirm(
	ctx context.Context,
	repos appshared.TransactionalRepositories,
	userID, paymentID, scheduleID uuid.UUID,
	seatIDs []uuid.UUID,
) (*reservation.Reservation, error) {
	seatIDs = reservation.NormalizeSeatIDs(seatIDs)
	r, err := reservation.NewConfirmedReservation(userID, paymentID, scheduleID, seatIDs)
	if err != nil {
		return nil, err
	}

	reserved, err := repos.ReservationRepo().FindReservedSeatIDs(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if overlaps(reserved, seatIDs) {
		return nil, shared.ErrSeatUnavailable
	}

	schedule, err := repos.ScheduleRepo().FindByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if _, err := schedule.DecreaseAvailableSeats(len(seatIDs)); err != nil {
		return nil, err
	}
	if err := repos.ScheduleRepo().UpdateSeats(ctx, schedule); err != nil {
		return nil, err
	}
	if err := repos.ReservationRepo().Save(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CancelByPayment cancels the reservation created by paymentID within repos'
// transaction and returns its seats to each schedule
func CancelByPayment(ctx context.Context, repos appshared.TransactionalRepositories, paymentID uuid.UUID) (*reservation.Reservation, error) {
	r, err := repos.ReservationRepo().FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := r.Cancel(); err != nil {
		return nil, err
	}
	if err := repos.ReservationRepo().Update(ctx, r); err != nil {
		return nil, err
	}
	for scheduleID, seats := range r.SeatIDs() {
		schedule, err := repos.ScheduleRepo().FindByID(ctx, scheduleID)
		if err != nil {
			return nil, err
		}
		if _, err := schedule.IncreaseAvailableSeats(len(seats)); err != nil {
			return nil, err
		}
		if err := repos.ScheduleRepo().UpdateSeats(ctx, schedule); err != nil {
			return nil, err
		}
	}
	return r, nil
}
