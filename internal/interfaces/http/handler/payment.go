package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/application/payment"
	"github.com/roovies/concert-reservation/internal/interfaces/http/middleware"
)

// PaymentService pays for held seats and refunds payments
type PaymentService interface {
	Pay(ctx context.Context, in payment.PayInput) (*payment.PaymentDTO, error)
	Refund(ctx context.Context, in payment.RefundInput) (*payment.PaymentDTO, error)
	GetPayment(ctx context.Context, paymentID, userID uuid.UUID) (*payment.PaymentDTO, error)
}

// PayRequest represents the request body for paying held seats
type PayRequest struct {
	ScheduleID uuid.UUID   `json:"schedule_id" binding:"required"`
	SeatIDs    []uuid.UUID `json:"seat_ids" binding:"required,min=1,max=10"`
}

// CancelPaymentRequest optionally explains a cancellation
type CancelPaymentRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// PaymentHandler handles payment requests
type PaymentHandler struct {
	BaseHandler
	paymentService PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Pay godoc
// @Summary      Pay for held seats
// @Description  Deducts points for the caller's held seats and confirms the reservation. Retrying with the same Idempotency-Key returns the original payment.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string true "Client request key"
// @Param        request body PayRequest true "Seats to pay for"
// @Success      201 {object} dto.Response{data=payment.PaymentDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments [post]
func (h *PaymentHandler) Pay(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	key := c.GetHeader(middleware.IdempotencyKeyHeader)
	if key == "" {
		h.BadRequest(c, "Idempotency-Key header is required")
		return
	}
	var req PayRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.Pay(c.Request.Context(), payment.PayInput{
		IdempotencyKey: key,
		UserID:         userID,
		ScheduleID:     req.ScheduleID,
		SeatIDs:        req.SeatIDs,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// GetPayment godoc
// @Summary      Get a payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=payment.PaymentDTO}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.paymentService.GetPayment(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Cancel godoc
// @Summary      Cancel a payment
// @Description  Refunds the paid points and cancels the reservation
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body CancelPaymentRequest false "Reason"
// @Success      200 {object} dto.Response{data=payment.PaymentDTO}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id}/cancel [post]
func (h *PaymentHandler) Cancel(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req CancelPaymentRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.Refund(c.Request.Context(), payment.RefundInput{
		PaymentID: id,
		UserID:    userID,
		Reason:    req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
