package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/application/concert"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/interfaces/http/dto"
)

// ConcertService serves the concert catalogue
type ConcertService interface {
	ListConcerts(ctx context.Context, page shared.PageRequest) (shared.Paginated[concert.ConcertDTO], error)
	GetConcert(ctx context.Context, id uuid.UUID) (*concert.ConcertDetailDTO, error)
	ListSchedules(ctx context.Context, concertID uuid.UUID) ([]concert.ScheduleDTO, error)
}

// ConcertHandler handles concert catalogue requests
type ConcertHandler struct {
	BaseHandler
	concertService ConcertService
}

// NewConcertHandler creates a new concert handler
func NewConcertHandler(concertService ConcertService) *ConcertHandler {
	return &ConcertHandler{concertService: concertService}
}

// ListConcerts godoc
// @Summary      List concerts
// @Tags         concerts
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]concert.ConcertDTO,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /concerts [get]
func (h *ConcertHandler) ListConcerts(c *gin.Context) {
	var q dto.PageQuery
	if !h.BindQuery(c, &q) {
		return
	}

	page, err := h.concertService.ListConcerts(c.Request.Context(), q.Request())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page))
}

// GetConcert godoc
// @Summary      Get a concert
// @Description  Concert detail with venue and schedules
// @Tags         concerts
// @Produce      json
// @Param        id path string true "Concert ID" format(uuid)
// @Success      200 {object} dto.Response{data=concert.ConcertDetailDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /concerts/{id} [get]
func (h *ConcertHandler) GetConcert(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.concertService.GetConcert(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// ListSchedules godoc
// @Summary      List concert schedules
// @Tags         concerts
// @Produce      json
// @Param        id path string true "Concert ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]concert.ScheduleDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /concerts/{id}/schedules [get]
func (h *ConcertHandler) ListSchedules(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	schedules, err := h.concertService.ListSchedules(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if schedules == nil {
		schedules = []concert.ScheduleDTO{}
	}
	h.Success(c, schedules)
}
