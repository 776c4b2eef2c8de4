package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appreservation "github.com/roovies/concert-reservation/internal/application/reservation"
	"github.com/roovies/concert-reservation/internal/domain/reservation"
	"github.com/roovies/concert-reservation/internal/interfaces/http/dto"
	"github.com/roovies/concert-reservation/internal/interfaces/http/middleware"
)

// ReservationService holds seats and lists reservations
type ReservationService interface {
	HoldSeats(ctx context.Context, in appreservation.HoldSeatsInput) (*reservation.HoldSeat, error)
	ReleaseHolds(ctx context.Context, scheduleID uuid.UUID, seatIDs []uuid.UUID, userID uuid.UUID) (int, error)
	GetMyHeldSeats(ctx context.Context, userID, scheduleID uuid.UUID) (*reservation.HoldSeat, error)
	GetAvailableSeats(ctx context.Context, concertID uuid.UUID, date string) (*appreservation.AvailableSeatsDTO, error)
	ListMyReservations(ctx context.Context, userID uuid.UUID) ([]appreservation.ReservationDTO, error)
}

// SeatsURI addresses the seat map of one performance day
type SeatsURI struct {
	ConcertID string `uri:"concertId" binding:"required,uuid"`
	Date      string `uri:"date" binding:"required,datetime=2006-01-02"`
}

// HoldSeatsRequest represents the request body for holding seats
type HoldSeatsRequest struct {
	ScheduleID uuid.UUID   `json:"schedule_id" binding:"required"`
	SeatIDs    []uuid.UUID `json:"seat_ids" binding:"required,min=1,max=10"`
}

// ReleaseHoldsRequest represents the request body for releasing held seats
type ReleaseHoldsRequest struct {
	ScheduleID uuid.UUID   `json:"schedule_id" binding:"required"`
	SeatIDs    []uuid.UUID `json:"seat_ids" binding:"required,min=1"`
}

// ReleaseHoldsResponse reports how many holds were removed
type ReleaseHoldsResponse struct {
	Released int `json:"released"`
}

// MyHoldQuery selects the schedule for GET /reservations/hold/me
type MyHoldQuery struct {
	ScheduleID string `form:"scheduleId" binding:"required,uuid"`
}

// ReservationHandler handles seat hold and reservation requests
type ReservationHandler struct {
	BaseHandler
	reservationService ReservationService
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservationService ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// GetAvailableSeats godoc
// @Summary      List available seats
// @Description  Seats of a performance day that are neither held nor reserved
// @Tags         reservations
// @Produce      json
// @Param        concertId path string true "Concert ID" format(uuid)
// @Param        date path string true "Performance date" example(2026-07-10)
// @Success      200 {object} dto.Response{data=appreservation.AvailableSeatsDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /reservations/{concertId}/schedules/{date}/seats [get]
func (h *ReservationHandler) GetAvailableSeats(c *gin.Context) {
	var uri SeatsURI
	if !h.BindURI(c, &uri) {
		return
	}

	seats, err := h.reservationService.GetAvailableSeats(c.Request.Context(), uuid.MustParse(uri.ConcertID), uri.Date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, seats)
}

// HoldSeats godoc
// @Summary      Hold seats
// @Description  Temporarily claims seats for the caller. Retrying with the same Idempotency-Key returns the original hold.
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string true "Client request key"
// @Param        X-Admission-Token header string false "Waiting-room admission token"
// @Param        request body HoldSeatsRequest true "Seats to hold"
// @Success      201 {object} dto.Response{data=reservation.HoldSeat}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reservations/hold [post]
func (h *ReservationHandler) HoldSeats(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	key := c.GetHeader(middleware.IdempotencyKeyHeader)
	if key == "" {
		h.BadRequest(c, "Idempotency-Key header is required")
		return
	}
	var req HoldSeatsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if adm := middleware.GetAdmission(c); adm != nil && adm.ScheduleID != req.ScheduleID {
		h.Error(c, http.StatusForbidden, dto.ErrCodeAdmissionRequired, "Admission token was issued for another schedule")
		return
	}

	hold, err := h.reservationService.HoldSeats(c.Request.Context(), appreservation.HoldSeatsInput{
		IdempotencyKey: key,
		ScheduleID:     req.ScheduleID,
		SeatIDs:        req.SeatIDs,
		UserID:         userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, hold)
}

// ReleaseHolds godoc
// @Summary      Release held seats
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Param        request body ReleaseHoldsRequest true "Seats to release"
// @Success      200 {object} dto.Response{data=ReleaseHoldsResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reservations/hold [delete]
func (h *ReservationHandler) ReleaseHolds(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req ReleaseHoldsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	n, err := h.reservationService.ReleaseHolds(c.Request.Context(), req.ScheduleID, req.SeatIDs, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ReleaseHoldsResponse{Released: n})
}

// GetMyHold godoc
// @Summary      Get my held seats
// @Description  The caller's current hold on a schedule with the remaining TTL
// @Tags         reservations
// @Produce      json
// @Param        scheduleId query string true "Schedule ID" format(uuid)
// @Success      200 {object} dto.Response{data=reservation.HoldSeat}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reservations/hold/me [get]
func (h *ReservationHandler) GetMyHold(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var q MyHoldQuery
	if !h.BindQuery(c, &q) {
		return
	}

	hold, err := h.reservationService.GetMyHeldSeats(c.Request.Context(), userID, uuid.MustParse(q.ScheduleID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, hold)
}

// ListMyReservations godoc
// @Summary      List my reservations
// @Tags         reservations
// @Produce      json
// @Success      200 {object} dto.Response{data=[]appreservation.ReservationDTO}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reservations/me [get]
func (h *ReservationHandler) ListMyReservations(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	list, err := h.reservationService.ListMyReservations(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if list == nil {
		list = []appreservation.ReservationDTO{}
	}
	h.Success(c, list)
}
