package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/roovies/concert-reservation/internal/application/ranking"
)

// RankingService reads concert rankings
type RankingService interface {
	Realtime(ctx context.Context) ([]ranking.RankingDTO, error)
	Weekly(ctx context.Context) ([]ranking.RankingDTO, error)
}

// RankingHandler handles ranking requests
type RankingHandler struct {
	BaseHandler
	rankingService RankingService
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(rankingService RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

// Realtime godoc
// @Summary      Realtime ranking
// @Description  Schedules ranked by payments over the realtime window
// @Tags         rankings
// @Produce      json
// @Success      200 {object} dto.Response{data=[]ranking.RankingDTO}
// @Router       /rankings/realtime [get]
func (h *RankingHandler) Realtime(c *gin.Context) {
	h.respond(c, h.rankingService.Realtime)
}

// Weekly godoc
// @Summary      Weekly ranking
// @Description  Schedules ranked by payments over the last seven days, rebuilt by a scheduled job
// @Tags         rankings
// @Produce      json
// @Success      200 {object} dto.Response{data=[]ranking.RankingDTO}
// @Router       /rankings/weekly [get]
func (h *RankingHandler) Weekly(c *gin.Context) {
	h.respond(c, h.rankingService.Weekly)
}

func (h *RankingHandler) respond(c *gin.Context, load func(context.Context) ([]ranking.RankingDTO, error)) {
	list, err := load(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if list == nil {
		list = []ranking.RankingDTO{}
	}
	h.Success(c, list)
}
