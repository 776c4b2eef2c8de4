package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/application/point"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/interfaces/http/dto"
)

// PointService reads and charges point wallets
type PointService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*point.BalanceDTO, error)
	GetHistory(ctx context.Context, userID uuid.UUID, page shared.PageRequest) (*shared.Paginated[point.HistoryDTO], error)
	Charge(ctx context.Context, userID uuid.UUID, amount int64) (*point.BalanceDTO, error)
}

// ChargePointRequest represents the request body for charging points
type ChargePointRequest struct {
	Amount int64 `json:"amount" binding:"required,hundreds" example:"10000"`
}

// PointHandler handles point wallet requests
type PointHandler struct {
	BaseHandler
	pointService PointService
}

// NewPointHandler creates a new point handler
func NewPointHandler(pointService PointService) *PointHandler {
	return &PointHandler{pointService: pointService}
}

// GetBalance godoc
// @Summary      Get my point balance
// @Tags         point
// @Produce      json
// @Success      200 {object} dto.Response{data=point.BalanceDTO}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /point [get]
func (h *PointHandler) GetBalance(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	balance, err := h.pointService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// Charge godoc
// @Summary      Charge points
// @Description  Amount must be a positive multiple of 100
// @Tags         point
// @Accept       json
// @Produce      json
// @Param        request body ChargePointRequest true "Amount to charge"
// @Success      200 {object} dto.Response{data=point.BalanceDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /point/charge [post]
func (h *PointHandler) Charge(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req ChargePointRequest
	if !h.BindJSON(c, &req) {
		return
	}

	balance, err := h.pointService.Charge(c.Request.Context(), userID, req.Amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// GetHistory godoc
// @Summary      List my point history
// @Tags         point
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]point.HistoryDTO,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /point/history [get]
func (h *PointHandler) GetHistory(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var q dto.PageQuery
	if !h.BindQuery(c, &q) {
		return
	}

	history, err := h.pointService.GetHistory(c.Request.Context(), userID, q.Request())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(*history))
}
