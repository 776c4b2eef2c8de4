package handler

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appwaiting "github.com/roovies/concert-reservation/internal/application/waiting"
	"github.com/roovies/concert-reservation/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// WaitingService runs the reservation waiting room
type WaitingService interface {
	Enter(ctx context.Context, userID, scheduleID uuid.UUID) (*appwaiting.EnterDTO, error)
	Subscribe(ctx context.Context, userID, scheduleID uuid.UUID, userKey string) (*appwaiting.Subscription, error)
	Unsubscribe(ctx context.Context, sub *appwaiting.Subscription)
	Exit(ctx context.Context, userID, scheduleID uuid.UUID, userKey string) error
	SSETimeout() time.Duration
}

// EnterWaitingRequest represents the request body for joining the waiting room
type EnterWaitingRequest struct {
	ScheduleID uuid.UUID `json:"schedule_id" binding:"required"`
}

// WaitingSessionQuery identifies a waiting session
type WaitingSessionQuery struct {
	ScheduleID string `form:"scheduleId" binding:"required,uuid"`
	UserKey    string `form:"userKey" binding:"required,max=128"`
}

// WaitingHandler handles waiting room requests
type WaitingHandler struct {
	BaseHandler
	waitingService WaitingService
}

// NewWaitingHandler creates a new waiting handler
func NewWaitingHandler(waitingService WaitingService) *WaitingHandler {
	return &WaitingHandler{waitingService: waitingService}
}

// Enter godoc
// @Summary      Enter the waiting room
// @Description  Admits immediately while permits remain; otherwise queues the session and returns its place in line
// @Tags         waiting
// @Accept       json
// @Produce      json
// @Param        request body EnterWaitingRequest true "Schedule"
// @Success      200 {object} dto.Response{data=appwaiting.EnterDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /waiting/reservation/enter [post]
func (h *WaitingHandler) Enter(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req EnterWaitingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.waitingService.Enter(c.Request.Context(), userID, req.ScheduleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Subscribe godoc
// @Summary      Stream waiting status
// @Description  Server-sent events: "connected", periodic "status" with the place in line, and a final "admit" carrying the admission token
// @Tags         waiting
// @Produce      text/event-stream
// @Param        scheduleId query string true "Schedule ID" format(uuid)
// @Param        userKey query string true "Session key returned by enter"
// @Success      200 {string} string "event stream"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /waiting/reservation/subscribe [get]
func (h *WaitingHandler) Subscribe(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var q WaitingSessionQuery
	if !h.BindQuery(c, &q) {
		return
	}

	sub, err := h.waitingService.Subscribe(c.Request.Context(), userID, uuid.MustParse(q.ScheduleID), q.UserKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	// The request context is cancelled once the client is gone.
	defer h.waitingService.Unsubscribe(context.WithoutCancel(c.Request.Context()), sub)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	timeout := time.NewTimer(h.waitingService.SSETimeout())
	defer timeout.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev := <-sub.Events():
			c.SSEvent(ev.Name, ev.Data)
			return ev.Name != appwaiting.EventAdmit
		case <-sub.Done():
			drain(c, sub)
			return false
		case <-timeout.C:
			logger.FromGin(c).Debug("Waiting stream timed out", zap.String("user_key", q.UserKey))
			return false
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// drain flushes events queued before the subscription closed
func drain(c *gin.Context, sub *appwaiting.Subscription) {
	for {
		select {
		case ev := <-sub.Events():
			c.SSEvent(ev.Name, ev.Data)
		default:
			c.Writer.Flush()
			return
		}
	}
}

// Exit godoc
// @Summary      Leave the waiting room
// @Description  Dequeues the session; an admitted session gives its permit back
// @Tags         waiting
// @Param        scheduleId query string true "Schedule ID" format(uuid)
// @Param        userKey query string true "Session key returned by enter"
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /waiting/reservation [delete]
func (h *WaitingHandler) Exit(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var q WaitingSessionQuery
	if !h.BindQuery(c, &q) {
		return
	}

	if err := h.waitingService.Exit(c.Request.Context(), userID, uuid.MustParse(q.ScheduleID), q.UserKey); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
