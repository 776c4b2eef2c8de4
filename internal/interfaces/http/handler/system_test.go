package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/application/event"
	"github.com/roovies/concert-reservation/internal/application/ranking"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_Health(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	t.Run("all up", func(t *testing.T) {
		h := NewSystemHandler("concert-reservation", "test", map[string]HealthCheck{"db": up, "redis": up})
		r := testRouter(uuid.Nil)
		r.GET("/health", h.Health)

		w := serve(r, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"UP","components":{"db":"UP","redis":"UP"}}`, string(mustField(t, w.Body.Bytes(), "data")))
	})

	t.Run("one down", func(t *testing.T) {
		h := NewSystemHandler("concert-reservation", "test", map[string]HealthCheck{"db": up, "redis": down})
		r := testRouter(uuid.Nil)
		r.GET("/health", h.Health)

		w := serve(r, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"DOWN","components":{"db":"UP","redis":"DOWN"}}`, string(mustField(t, w.Body.Bytes(), "data")))
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestSystemHandler_Info(t *testing.T) {
	h := NewSystemHandler("concert-reservation", "1.2.3", nil)
	r := testRouter(uuid.Nil)
	r.GET("/system/info", h.GetSystemInfo)

	w := serve(r, http.MethodGet, "/system/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["go_version"])
}

func TestRankingHandler(t *testing.T) {
	svc := new(MockRankingService)
	svc.On("Realtime", mock.Anything).Return([]ranking.RankingDTO{{Rank: 1, ConcertTitle: "Spring Tour", PaymentCount: 12}}, nil)
	svc.On("Weekly", mock.Anything).Return(nil, nil)
	h := NewRankingHandler(svc)
	r := testRouter(uuid.Nil)
	r.GET("/rankings/realtime", h.Realtime)
	r.GET("/rankings/weekly", h.Weekly)

	w := serve(r, http.MethodGet, "/rankings/realtime", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeResponse(t, w).Data, 1)

	w = serve(r, http.MethodGet, "/rankings/weekly", "")
	assert.JSONEq(t, `[]`, string(mustField(t, w.Body.Bytes(), "data")))
}

func TestOutboxHandler(t *testing.T) {
	id := uuid.New()
	svc := new(MockOutboxService)
	page := shared.NewPaginated([]event.OutboxEntryDTO{{ID: id, Status: "DEAD"}}, 1, 1, 20)
	svc.On("ListDead", mock.Anything, shared.PageRequest{Page: 1, PageSize: 20}).Return(&page, nil)
	svc.On("Requeue", mock.Anything, id).Return(&event.OutboxEntryDTO{ID: id, Status: "PENDING"}, nil)
	svc.On("RequeueAll", mock.Anything).Return(int64(4), nil)
	svc.On("Stats", mock.Anything).Return(&event.OutboxStatsDTO{Dead: 1, Total: 9}, nil)

	h := NewOutboxHandler(svc)
	r := testRouter(uuid.New())
	r.GET("/system/outbox/stats", h.Stats)
	r.GET("/system/outbox/dead", h.ListDead)
	r.POST("/system/outbox/dead/:id/requeue", h.Requeue)
	r.POST("/system/outbox/dead/requeue", h.RequeueAll)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/system/outbox/stats", "").Code)

	w := serve(r, http.MethodGet, "/system/outbox/dead", "")
	assert.Equal(t, int64(1), decodeResponse(t, w).Meta.Total)

	w = serve(r, http.MethodPost, "/system/outbox/dead/"+id.String()+"/requeue", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodPost, "/system/outbox/dead/requeue", "")
	assert.JSONEq(t, `{"count":4}`, string(mustField(t, w.Body.Bytes(), "data")))
	svc.AssertExpectations(t)
}
