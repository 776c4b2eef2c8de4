package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/roovies/concert-reservation/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	newRouter := func(limit int64) *gin.Engine {
		r := gin.New()
		r.Use(RequestID(), BodyLimit(limit))
		r.POST("/api/v1/point/charge", func(c *gin.Context) {
			if _, err := io.ReadAll(c.Request.Body); err != nil {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
			c.Status(http.StatusOK)
		})
		return r
	}

	t.Run("within limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(1024).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/point/charge", strings.NewReader(`{"amount":1000}`)))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("declared length too large", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(10).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/point/charge", strings.NewReader(strings.Repeat("x", 200))))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, decodeError(t, rec).Code)
	})

	t.Run("chunked body cut off while reading", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/point/charge", strings.NewReader(strings.Repeat("x", 200)))
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		newRouter(10).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("zero disables", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newRouter(0).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/point/charge", strings.NewReader(strings.Repeat("x", 200))))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
