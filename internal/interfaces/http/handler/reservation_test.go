package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appreservation "github.com/roovies/concert-reservation/internal/application/reservation"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/waiting"
	"github.com/roovies/concert-reservation/internal/interfaces/http/dto"
	"github.com/roovies/concert-reservation/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func reservationRouter(svc ReservationService, userID uuid.UUID, admission *waiting.Admission) http.Handler {
	h := NewReservationHandler(svc)
	r := testRouter(userID)
	r.GET("/reservations/:concertId/schedules/:date/seats", h.GetAvailableSeats)
	r.POST("/reservations/hold", func(c *gin.Context) {
		if admission != nil {
			c.Set(middleware.AdmissionKey, admission)
		}
		c.Next()
	}, h.HoldSeats)
	r.DELETE("/reservations/hold", h.ReleaseHolds)
	r.GET("/reservations/hold/me", h.GetMyHold)
	r.GET("/reservations/me", h.ListMyReservations)
	return r
}

func TestReservationHandler_AvailableSeats(t *testing.T) {
	concertID := uuid.New()
	svc := new(MockReservationService)
	svc.On("GetAvailableSeats", mock.Anything, concertID, "2026-07-10").
		Return(&appreservation.AvailableSeatsDTO{Date: "2026-07-10"}, nil)
	r := reservationRouter(svc, uuid.Nil, nil)

	w := serve(r, http.MethodGet, "/reservations/"+concertID.String()+"/schedules/2026-07-10/seats", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/reservations/"+concertID.String()+"/schedules/07-10-2026/seats", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
	svc.AssertNumberOfCalls(t, "GetAvailableSeats", 1)
}

func TestReservationHandler_Hold(t *testing.T) {
	userID := uuid.New()
	scheduleID := uuid.New()
	seatID := uuid.New()
	body := `{"schedule_id":"` + scheduleID.String() + `","seat_ids":["` + seatID.String() + `"]}`

	t.Run("created", func(t *testing.T) {
		svc := new(MockReservationService)
		svc.On("HoldSeats", mock.Anything, appreservation.HoldSeatsInput{
			IdempotencyKey: "key-1",
			ScheduleID:     scheduleID,
			SeatIDs:        []uuid.UUID{seatID},
			UserID:         userID,
		}).Return(&reservation.HoldSeat{ScheduleID: scheduleID, SeatIDs: []uuid.UUID{seatID}, UserID: userID, TTLSeconds: 900}, nil)

		w := serve(reservationRouter(svc, userID, nil), http.MethodPost, "/reservations/hold", body, middleware.IdempotencyKeyHeader, "key-1")
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("missing idempotency key", func(t *testing.T) {
		svc := new(MockReservationService)
		w := serve(reservationRouter(svc, userID, nil), http.MethodPost, "/reservations/hold", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "HoldSeats", mock.Anything, mock.Anything)
	})

	t.Run("seat taken", func(t *testing.T) {
		svc := new(MockReservationService)
		svc.On("HoldSeats", mock.Anything, mock.Anything).Return(nil, shared.ErrSeatUnavailable)
		w := serve(reservationRouter(svc, userID, nil), http.MethodPost, "/reservations/hold", body, middleware.IdempotencyKeyHeader, "key-2")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeSeatUnavailable, decodeResponse(t, w).Error.Code)
	})

	t.Run("admission for another schedule", func(t *testing.T) {
		svc := new(MockReservationService)
		adm := &waiting.Admission{ScheduleID: uuid.New(), UserKey: waiting.NewUserKey(userID)}
		w := serve(reservationRouter(svc, userID, adm), http.MethodPost, "/reservations/hold", body, middleware.IdempotencyKeyHeader, "key-3")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrCodeAdmissionRequired, decodeResponse(t, w).Error.Code)
	})

	t.Run("empty seat list", func(t *testing.T) {
		svc := new(MockReservationService)
		w := serve(reservationRouter(svc, userID, nil), http.MethodPost, "/reservations/hold",
			`{"schedule_id":"`+scheduleID.String()+`","seat_ids":[]}`, middleware.IdempotencyKeyHeader, "key-4")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReservationHandler_ReleaseAndQuery(t *testing.T) {
	userID := uuid.New()
	scheduleID := uuid.New()
	seatID := uuid.New()
	svc := new(MockReservationService)
	svc.On("ReleaseHolds", mock.Anything, scheduleID, []uuid.UUID{seatID}, userID).Return(1, nil)
	svc.On("GetMyHeldSeats", mock.Anything, userID, scheduleID).
		Return(&reservation.HoldSeat{ScheduleID: scheduleID, UserID: userID, TTLSeconds: 30}, nil)
	svc.On("ListMyReservations", mock.Anything, userID).Return(nil, nil)
	r := reservationRouter(svc, userID, nil)

	w := serve(r, http.MethodDelete, "/reservations/hold", `{"schedule_id":"`+scheduleID.String()+`","seat_ids":["`+seatID.String()+`"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"released":1}`, string(mustField(t, w.Body.Bytes(), "data")))

	w = serve(r, http.MethodGet, "/reservations/hold/me?scheduleId="+scheduleID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/reservations/hold/me", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodGet, "/reservations/me", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(mustField(t, w.Body.Bytes(), "data")))
	svc.AssertExpectations(t)
}
