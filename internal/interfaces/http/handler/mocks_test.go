package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/application/concert"
	"github.com/roovies/concert-reservation/internal/application/event"
	"github.com/roovies/concert-reservation/internal/application/identity"
	"github.com/roovies/concert-reservation/internal/application/payment"
	"github.com/roovies/concert-reservation/internal/application/point"
	"github.com/roovies/concert-reservation/internal/application/ranking"
	appreservation "github.com/roovies/concert-reservation/internal/application/reservation"
	appwaiting "github.com/roovies/concert-reservation/internal/application/waiting"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
)

// testRouter authenticates every request as userID (uuid.Nil for anonymous)
func testRouter(userID uuid.UUID) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.UserIDKey, userID.String())
		}
		c.Next()
	})
	return r
}

func serve(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ptr returns the first result as T or nil
func ptr[T any](args mock.Arguments) *T {
	if v := args.Get(0); v != nil {
		return v.(*T)
	}
	return nil
}

type MockAuthService struct{ mock.Mock }

func (m *MockAuthService) Login(ctx context.Context, input identity.LoginInput) (*identity.TokenResult, error) {
	args := m.Called(ctx, input)
	return ptr[identity.TokenResult](args), args.Error(1)
}

func (m *MockAuthService) Reissue(ctx context.Context, refreshToken string) (*identity.TokenResult, error) {
	args := m.Called(ctx, refreshToken)
	return ptr[identity.TokenResult](args), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, input identity.LogoutInput) error {
	return m.Called(ctx, input).Error(0)
}

type MockUserService struct{ mock.Mock }

func (m *MockUserService) Register(ctx context.Context, input identity.RegisterInput) (*identity.UserDTO, error) {
	args := m.Called(ctx, input)
	return ptr[identity.UserDTO](args), args.Error(1)
}

func (m *MockUserService) GetMe(ctx context.Context, userID uuid.UUID) (*identity.UserDTO, error) {
	args := m.Called(ctx, userID)
	return ptr[identity.UserDTO](args), args.Error(1)
}

func (m *MockUserService) UpdateMe(ctx context.Context, userID uuid.UUID, input identity.UpdateProfileInput) (*identity.UserDTO, error) {
	args := m.Called(ctx, userID, input)
	return ptr[identity.UserDTO](args), args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, userID uuid.UUID, input identity.ChangePasswordInput) error {
	return m.Called(ctx, userID, input).Error(0)
}

func (m *MockUserService) Delete(ctx context.Context, userID uuid.UUID, password string) error {
	return m.Called(ctx, userID, password).Error(0)
}

type MockConcertService struct{ mock.Mock }

func (m *MockConcertService) ListConcerts(ctx context.Context, page shared.PageRequest) (shared.Paginated[concert.ConcertDTO], error) {
	args := m.Called(ctx, page)
	return args.Get(0).(shared.Paginated[concert.ConcertDTO]), args.Error(1)
}

func (m *MockConcertService) GetConcert(ctx context.Context, id uuid.UUID) (*concert.ConcertDetailDTO, error) {
	args := m.Called(ctx, id)
	return ptr[concert.ConcertDetailDTO](args), args.Error(1)
}

func (m *MockConcertService) ListSchedules(ctx context.Context, concertID uuid.UUID) ([]concert.ScheduleDTO, error) {
	args := m.Called(ctx, concertID)
	list, _ := args.Get(0).([]concert.ScheduleDTO)
	return list, args.Error(1)
}

type MockReservationService struct{ mock.Mock }

func (m *MockReservationService) HoldSeats(ctx context.Context, in appreservation.HoldSeatsInput) (*reservation.HoldSeat, error) {
	args := m.Called(ctx, in)
	return ptr[reservation.HoldSeat](args), args.Error(1)
}

func (m *MockReservationService) ReleaseHolds(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, scheduleID, seatIDs, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationService) GetMyHeldSeats(ctx context.Context, userID, scheduleID uuid.UUID) (*reservation.HoldSeat, error) {
	args := m.Called(ctx, userID, scheduleID)
	return ptr[reservation.HoldSeat](args), args.Error(1)
}

func (m *MockReservationService) GetAvailableSeats(ctx context.Context, concertID uuid.UUID, date string) (*appreservation.AvailableSeatsDTO, error) {
	args := m.Called(ctx, concertID, date)
	return ptr[appreservation.AvailableSeatsDTO](args), args.Error(1)
}

func (m *MockReservationService) ListMyReservations(ctx context.Context, userID uuid.UUID) ([]appreservation.ReservationDTO, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]appreservation.ReservationDTO)
	return list, args.Error(1)
}

type MockPointService struct{ mock.Mock }

func (m *MockPointService) GetBalance(ctx context.Context, userID uuid.UUID) (*point.BalanceDTO, error) {
	args := m.Called(ctx, userID)
	return ptr[point.BalanceDTO](args), args.Error(1)
}

func (m *MockPointService) GetHistory(ctx context.Context, userID uuid.UUID, page shared.PageRequest) (*shared.Paginated[point.HistoryDTO], error) {
	args := m.Called(ctx, userID, page)
	return ptr[shared.Paginated[point.HistoryDTO]](args), args.Error(1)
}

func (m *MockPointService) Charge(ctx context.Context, userID uuid.UUID, amount int64) (*point.BalanceDTO, error) {
	args := m.Called(ctx, userID, amount)
	return ptr[point.BalanceDTO](args), args.Error(1)
}

type MockPaymentService struct{ mock.Mock }

func (m *MockPaymentService) Pay(ctx context.Context, in payment.PayInput) (*payment.PaymentDTO, error) {
	args := m.Called(ctx, in)
	return ptr[payment.PaymentDTO](args), args.Error(1)
}

func (m *MockPaymentService) Refund(ctx context.Context, in payment.RefundInput) (*payment.PaymentDTO, error) {
	args := m.Called(ctx, in)
	return ptr[payment.PaymentDTO](args), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, paymentID, userID uuid.UUID) (*payment.PaymentDTO, error) {
	args := m.Called(ctx, paymentID, userID)
	return ptr[payment.PaymentDTO](args), args.Error(1)
}

type MockWaitingService struct{ mock.Mock }

func (m *MockWaitingService) Enter(ctx context.Context, userID, scheduleID uuid.UUID) (*appwaiting.EnterDTO, error) {
	args := m.Called(ctx, userID, scheduleID)
	return ptr[appwaiting.EnterDTO](args), args.Error(1)
}

func (m *MockWaitingService) Subscribe(ctx context.Context, userID, scheduleID uuid.UUID, userKey string) (*appwaiting.Subscription, error) {
	args := m.Called(ctx, userID, scheduleID, userKey)
	return ptr[appwaiting.Subscription](args), args.Error(1)
}

func (m *MockWaitingService) Unsubscribe(ctx context.Context, sub *appwaiting.Subscription) {
	m.Called(ctx, sub)
}

func (m *MockWaitingService) Exit(ctx context.Context, userID, scheduleID uuid.UUID, userKey string) error {
	return m.Called(ctx, userID, scheduleID, userKey).Error(0)
}

func (m *MockWaitingService) SSETimeout() time.Duration { return time.Minute }

type MockRankingService struct{ mock.Mock }

func (m *MockRankingService) Realtime(ctx context.Context) ([]ranking.RankingDTO, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]ranking.RankingDTO)
	return list, args.Error(1)
}

func (m *MockRankingService) Weekly(ctx context.Context) ([]ranking.RankingDTO, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]ranking.RankingDTO)
	return list, args.Error(1)
}

type MockOutboxService struct{ mock.Mock }

func (m *MockOutboxService) ListDead(ctx context.Context, page shared.PageRequest) (*shared.Paginated[event.OutboxEntryDTO], error) {
	args := m.Called(ctx, page)
	return ptr[shared.Paginated[event.OutboxEntryDTO]](args), args.Error(1)
}

func (m *MockOutboxService) Requeue(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	args := m.Called(ctx, id)
	return ptr[event.OutboxEntryDTO](args), args.Error(1)
}

func (m *MockOutboxService) RequeueAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxService) Stats(ctx context.Context) (*event.OutboxStatsDTO, error) {
	args := m.Called(ctx)
	return ptr[event.OutboxStatsDTO](args), args.Error(1)
}
