package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/application/concert"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func concertRouter(svc ConcertService) http.Handler {
	h := NewConcertHandler(svc)
	r := testRouter(uuid.Nil)
	r.GET("/concerts", h.ListConcerts)
	r.GET("/concerts/:id", h.GetConcert)
	r.GET("/concerts/:id/schedules", h.ListSchedules)
	return r
}

func TestConcertHandler_List(t *testing.T) {
	svc := new(MockConcertService)
	items := []concert.ConcertDTO{{ID: uuid.New(), Title: "Spring Tour"}}
	svc.On("ListConcerts", mock.Anything, shared.PageRequest{Page: 2, PageSize: 10}).
		Return(shared.NewPaginated(items, 11, 2, 10), nil)
	r := concertRouter(svc)

	w := serve(r, http.MethodGet, "/concerts?page=2&size=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(11), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	assert.Len(t, resp.Data, 1)

	w = serve(r, http.MethodGet, "/concerts?size=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConcertHandler_Detail(t *testing.T) {
	id := uuid.New()
	svc := new(MockConcertService)
	svc.On("GetConcert", mock.Anything, id).Return(&concert.ConcertDetailDTO{ConcertDTO: concert.ConcertDTO{ID: id}}, nil)
	svc.On("GetConcert", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)
	r := concertRouter(svc)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/concerts/"+id.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/concerts/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/concerts/42", "").Code)
}

func TestConcertHandler_SchedulesNeverNull(t *testing.T) {
	id := uuid.New()
	svc := new(MockConcertService)
	svc.On("ListSchedules", mock.Anything, id).Return(nil, nil)

	w := serve(concertRouter(svc), http.MethodGet, "/concerts/"+id.String()+"/schedules", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(mustField(t, w.Body.Bytes(), "data")))
}
