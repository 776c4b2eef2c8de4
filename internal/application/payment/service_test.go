package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	"github.com/roovies/concert-reservation/internal/domain/concert"
	"github.com/roovies/concert-reservation/internal/domain/payment"
	"github.com/roovies/concert-reservation/internal/domain/point"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/shared/valueobject"
	"github.com/roovies/concert-reservation/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeHolds struct {
	mu       sync.Mutex
	hold     *reservation.HoldSeat
	released int
	err      error
}

func (f *fakeHolds) GetHeldSeats(context.Context, uuid.UUID, []uuid.UUID, uuid.UUID) (*reservation.HoldSeat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hold, f.err
}

func (f *fakeHolds) ReleaseHolds(_ context.Context, _ uuid.UUID, seatIDs []uuid.UUID, _ uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released += len(seatIDs)
	return len(seatIDs), nil
}

type fixedPricer struct{ perSeat int64 }

func (p fixedPricer) GetSeatsTotalPrice(_ context.Context, seatIDs []uuid.UUID) (valueobject.Money, error) {
	return valueobject.MustMoney(p.perSeat).MultiplyByInt(int64(len(seatIDs))), nil
}

type fixture struct {
	repos    *testutil.FakeRepositories
	points   *testutil.MemoryPoints
	payments *testutil.MemoryPayments
	idem     *testutil.MemoryIdempotency
	schedule *concert.Schedule
	holds    *fakeHolds
	scope    *testutil.FakeScope
	svc      *Service
	userID   uuid.UUID
	seats    []uuid.UUID
}

func newFixture(t *testing.T, balance int64) *fixture {
	t.Helper()
	repos := testutil.NewMemoryRepositories()
	f := &fixture{
		repos:    repos,
		points:   repos.Points.(*testutil.MemoryPoints),
		payments: repos.Payments.(*testutil.MemoryPayments),
		idem:     repos.Idempotency.(*testutil.MemoryIdempotency),
		userID:   uuid.New(),
		seats:    reservation.NormalizeSeatIDs([]uuid.UUID{uuid.New(), uuid.New()}),
	}
	schedule, err := concert.NewSchedule(uuid.New(), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), uuid.New(), 50, 50)
	require.NoError(t, err)
	f.schedule = schedule
	repos.Schedules.(*testutil.MemorySchedules).Add(schedule)
	if balance > 0 {
		f.points.Seed(f.userID, balance)
	}

	f.holds = &fakeHolds{hold: &reservation.HoldSeat{
		ScheduleID: schedule.ID,
		SeatIDs:    f.seats,
		UserID:     f.userID,
		TTLSeconds: 600,
	}}
	f.scope = testutil.NewFakeScope(repos)
	f.svc = NewService(f.scope, repos.Payments, repos.Idempotency, f.holds, fixedPricer{perSeat: 15000},
		appshared.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}, nil, zap.NewNop())
	return f
}

func (f *fixture) payInput(key string) PayInput {
	return PayInput{IdempotencyKey: key, UserID: f.userID, ScheduleID: f.schedule.ID, SeatIDs: f.seats}
}

func (f *fixture) availableSeats(t *testing.T) int {
	t.Helper()
	s, err := f.repos.Schedules.FindByID(context.Background(), f.schedule.ID)
	require.NoError(t, err)
	return s.AvailableSeats
}

func TestService_Pay_Success(t *testing.T) {
	f := newFixture(t, 100000)

	result, err := f.svc.Pay(context.Background(), f.payInput("pay-1"))
	require.NoError(t, err)

	assert.Equal(t, int64(30000), result.PaidAmount)
	assert.Equal(t, int64(30000), result.OriginalAmount)
	assert.Equal(t, string(payment.StatusSuccess), result.Status)
	require.NotNil(t, result.ReservationID)

	assert.Equal(t, int64(70000), f.points.Balance(f.userID))
	assert.Equal(t, 48, f.availableSeats(t))
	assert.Equal(t, 2, f.holds.released)
	assert.Equal(t, []string{
		payment.EventTypePaymentCompleted,
		payment.EventTypeReservationCompleted,
	}, f.scope.CommittedEventTypes())

	res, err := f.repos.Reservations.FindByPaymentID(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusConfirmed, res.Status)
	assert.Equal(t, *result.ReservationID, res.ID)

	idem, ok := f.idem.Get("pay-1")
	require.True(t, ok)
	assert.True(t, idem.IsSuccess())
	require.NotNil(t, idem.PaymentID)
	assert.Equal(t, result.ID, *idem.PaymentID)

	history := f.points.History()
	require.Len(t, history, 1)
	assert.Equal(t, point.HistoryTypeUse, history[0].Type)
}

func TestService_Pay_ReplaysStoredResult(t *testing.T) {
	f := newFixture(t, 100000)
	ctx := context.Background()

	first, err := f.svc.Pay(ctx, f.payInput("pay-1"))
	require.NoError(t, err)
	second, err := f.svc.Pay(ctx, f.payInput("pay-1"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.PaidAmount, second.PaidAmount)
	assert.Len(t, f.payments.All(), 1)
	assert.Equal(t, int64(70000), f.points.Balance(f.userID))
	assert.Equal(t, 1, f.scope.Calls())
}

func TestService_Pay_DuplicateWhileProcessing(t *testing.T) {
	f := newFixture(t, 100000)
	ctx := context.Background()
	_, err := f.idem.TryInsert(ctx, payment.NewProcessingIdempotency("pay-1", f.userID))
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, f.payInput("pay-1"))
	assert.ErrorIs(t, err, shared.ErrDuplicateRequest)
	assert.Equal(t, 0, f.scope.Calls())
}

func TestService_Pay_InsufficientBalance(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	_, err := f.svc.Pay(ctx, f.payInput("pay-1"))
	assert.ErrorIs(t, err, shared.ErrInsufficientBalance)

	assert.Empty(t, f.scope.CommittedEvents())
	assert.Empty(t, f.payments.All())
	assert.Equal(t, 0, f.holds.released)
	assert.Equal(t, 50, f.availableSeats(t))

	idem, ok := f.idem.Get("pay-1")
	require.True(t, ok)
	assert.True(t, idem.IsFailed())
	assert.Equal(t, "Insufficient point balance", idem.ErrorMessage)

	// a failed key cannot be reused
	_, err = f.svc.Pay(ctx, f.payInput("pay-1"))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestService_Pay_Validation(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		f := newFixture(t, 100000)
		_, err := f.svc.Pay(context.Background(), f.payInput("  "))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("no held seats", func(t *testing.T) {
		f := newFixture(t, 100000)
		f.holds.hold = nil
		_, err := f.svc.Pay(context.Background(), f.payInput("pay-1"))
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		_, claimed := f.idem.Get("pay-1")
		assert.False(t, claimed)
	})

	t.Run("hold lookup fails", func(t *testing.T) {
		f := newFixture(t, 100000)
		f.holds.err = errors.New("redis down")
		_, err := f.svc.Pay(context.Background(), f.payInput("pay-1"))
		assert.EqualError(t, err, "redis down")
	})
}

func TestService_Pay_SeatsAlreadyReserved(t *testing.T) {
	f := newFixture(t, 100000)
	ctx := context.Background()
	other, err := reservation.NewConfirmedReservation(uuid.New(), uuid.New(), f.schedule.ID, f.seats[:1])
	require.NoError(t, err)
	require.NoError(t, f.repos.Reservations.Save(ctx, other))

	_, err = f.svc.Pay(ctx, f.payInput("pay-1"))
	assert.ErrorIs(t, err, shared.ErrSeatUnavailable)

	idem, _ := f.idem.Get("pay-1")
	assert.True(t, idem.IsFailed())
}

func TestService_Refund(t *testing.T) {
	f := newFixture(t, 100000)
	ctx := context.Background()
	paid, err := f.svc.Pay(ctx, f.payInput("pay-1"))
	require.NoError(t, err)

	refunded, err := f.svc.Refund(ctx, RefundInput{PaymentID: paid.ID, UserID: f.userID})
	require.NoError(t, err)

	assert.Equal(t, string(payment.StatusRefunded), refunded.Status)
	assert.Equal(t, "cancelled by user", refunded.RefundReason)
	assert.NotNil(t, refunded.RefundedAt)
	assert.Equal(t, int64(100000), f.points.Balance(f.userID))
	assert.Equal(t, 50, f.availableSeats(t))

	res, err := f.repos.Reservations.FindByPaymentID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, res.Status)
	assert.Contains(t, f.scope.CommittedEventTypes(), payment.EventTypePaymentRefunded)

	_, err = f.svc.Refund(ctx, RefundInput{PaymentID: paid.ID, UserID: f.userID})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestService_Refund_OtherUserForbidden(t *testing.T) {
	f := newFixture(t, 100000)
	ctx := context.Background()
	paid, err := f.svc.Pay(ctx, f.payInput("pay-1"))
	require.NoError(t, err)

	_, err = f.svc.Refund(ctx, RefundInput{PaymentID: paid.ID, UserID: uuid.New()})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, int64(70000), f.points.Balance(f.userID))
}

func TestService_GetPayment(t *testing.T) {
	f := newFixture(t, 100000)
	ctx := context.Background()
	paid, err := f.svc.Pay(ctx, f.payInput("pay-1"))
	require.NoError(t, err)

	got, err := f.svc.GetPayment(ctx, paid.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, paid.ID, got.ID)

	_, err = f.svc.GetPayment(ctx, paid.ID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.svc.GetPayment(ctx, uuid.New(), f.userID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCompensationHandler(t *testing.T) {
	f := newFixture(t, 100000)
	ctx := context.Background()
	paid, err := f.svc.Pay(ctx, f.payInput("pay-1"))
	require.NoError(t, err)
	h := NewCompensationHandler(f.svc, zap.NewNop())
	assert.Equal(t, []string{point.EventTypeCompensatePayment}, h.EventTypes())

	ev := point.NewCompensatePaymentEvent(paid.ID, f.userID, paid.PaidAmount, "reward failed")
	require.NoError(t, h.Handle(ctx, ev))

	p, err := f.payments.FindByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, p.Status)
	assert.Equal(t, "compensation: reward failed", p.RefundReason)
	assert.Equal(t, int64(100000), f.points.Balance(f.userID))

	// redelivery is a no-op
	require.NoError(t, h.Handle(ctx, ev))
	assert.Equal(t, int64(100000), f.points.Balance(f.userID))
}

func TestCompensationHandler_InfrastructureErrorIsReturned(t *testing.T) {
	f := newFixture(t, 100000)
	f.scope.Err = errors.New("connection reset")
	h := NewCompensationHandler(f.svc, zap.NewNop())

	err := h.Handle(context.Background(), point.NewCompensatePaymentEvent(uuid.New(), f.userID, 1000, "x"))
	assert.EqualError(t, err, "connection reset")
}
