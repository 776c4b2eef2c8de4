package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/interfaces/http/dto"
	"github.com/roovies/concert-reservation/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func newTestContext(method, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.RequestIDKey, "req-1")
	return c, w
}

// setUser simulates a request that passed JWTAuth
func setUser(c *gin.Context, userID uuid.UUID) {
	c.Set(middleware.UserIDKey, userID.String())
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandlerSuccessResponses(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext(http.MethodGet, "/", "")
	h.Success(c, gin.H{"ok": true})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)

	c, w = newTestContext(http.MethodPost, "/", "")
	h.Created(c, gin.H{"id": 1})
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newTestContext(http.MethodDelete, "/", "")
	h.NoContent(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	c, w = newTestContext(http.MethodGet, "/", "")
	h.SuccessWithMeta(c, []int{1, 2}, 42, 2, 20)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(42), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestBaseHandlerErrorMethods(t *testing.T) {
	h := &BaseHandler{}
	tests := []struct {
		name   string
		call   func(*gin.Context)
		status int
		code   string
	}{
		{"bad request", func(c *gin.Context) { h.BadRequest(c, "bad") }, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"not found", func(c *gin.Context) { h.NotFound(c, "missing") }, http.StatusNotFound, dto.ErrCodeNotFound},
		{"unauthorized", func(c *gin.Context) { h.Unauthorized(c, "who") }, http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"forbidden", func(c *gin.Context) { h.Forbidden(c, "no") }, http.StatusForbidden, dto.ErrCodeForbidden},
		{"internal", func(c *gin.Context) { h.InternalError(c, "boom") }, http.StatusInternalServerError, dto.ErrCodeInternal},
		{"by code", func(c *gin.Context) { h.ErrorWithCode(c, dto.ErrCodeSeatUnavailable, "taken") }, http.StatusConflict, dto.ErrCodeSeatUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, "/", "")
			tt.call(c)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestBaseHandlerHandleError(t *testing.T) {
	h := &BaseHandler{}
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, "NOT_FOUND", shared.ErrNotFound.Message},
		{"wrapped", fmt.Errorf("load: %w", shared.ErrSeatUnavailable), http.StatusConflict, "SEAT_UNAVAILABLE", shared.ErrSeatUnavailable.Message},
		{"insufficient balance", shared.ErrInsufficientBalance, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", shared.ErrInsufficientBalance.Message},
		{"invalid prefix", shared.NewDomainError("INVALID_AMOUNT", "Points can only be charged in units of 100 won"), http.StatusBadRequest, "INVALID_AMOUNT", "Points can only be charged in units of 100 won"},
		{"duplicate prefix", shared.NewDomainError("DUPLICATE_SEAT", "dup"), http.StatusBadRequest, "DUPLICATE_SEAT", "dup"},
		{"domain internal hides detail", shared.NewDomainError("INTERNAL_ERROR", "pq: relation missing"), http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"},
		{"plain error", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, "/", "")
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
		})
	}

	t.Run("nil is a no-op", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/", "")
		h.HandleError(c, nil)
		assert.False(t, c.Writer.Written())
		assert.Empty(t, w.Body.String())
	})
}

type bindTarget struct {
	Email  string `json:"email" binding:"required,email"`
	Amount int64  `json:"amount" binding:"required,hundreds"`
}

func TestBaseHandlerBindJSON(t *testing.T) {
	h := &BaseHandler{}

	t.Run("valid", func(t *testing.T) {
		c, _ := newTestContext(http.MethodPost, "/", `{"email":"fan@example.com","amount":1000}`)
		var req bindTarget
		assert.True(t, h.BindJSON(c, &req))
		assert.Equal(t, int64(1000), req.Amount)
	})

	t.Run("validation details", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/", `{"email":"nope","amount":150}`)
		var req bindTarget
		assert.False(t, h.BindJSON(c, &req))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Len(t, resp.Error.Details, 2)
	})

	t.Run("malformed", func(t *testing.T) {
		c, w := newTestContext(http.MethodPost, "/", `{"email":`)
		var req bindTarget
		assert.False(t, h.BindJSON(c, &req))
		assert.Equal(t, dto.ErrCodeBadRequest, decodeResponse(t, w).Error.Code)
	})
}

func TestCurrentUser(t *testing.T) {
	h := &BaseHandler{}
	userID := uuid.New()

	c, _ := newTestContext(http.MethodGet, "/", "")
	setUser(c, userID)
	got, ok := h.currentUser(c)
	assert.True(t, ok)
	assert.Equal(t, userID, got)

	c, w := newTestContext(http.MethodGet, "/", "")
	_, ok = h.currentUser(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func mustField(t *testing.T, body []byte, field string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	raw, ok := m[field]
	require.True(t, ok, "missing field %q", field)
	return raw
}
