package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/infrastructure/auth"
	"github.com/roovies/concert-reservation/internal/infrastructure/config"
	"github.com/roovies/concert-reservation/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService(accessTTL time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  accessTTL,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "test-issuer",
	})
}

func issuePair(t *testing.T, svc *auth.JWTService) (*auth.TokenPair, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	pair, err := svc.GenerateTokenPair(auth.Subject{UserID: userID, Email: "fan@example.com", Nickname: "fan"})
	require.NoError(t, err)
	return pair, userID
}

func jwtRouter(cfg JWTMiddlewareConfig, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), JWTAuth(cfg))
	r.GET("/api/v1/users/me", handler)
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestJWTAuth_ValidToken(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	pair, userID := issuePair(t, svc)

	var gotUser uuid.UUID
	var gotToken string
	r := jwtRouter(JWTMiddlewareConfig{Validator: svc}, func(c *gin.Context) {
		gotUser, _ = GetUserID(c)
		gotToken = GetAccessToken(c)
		require.NotNil(t, GetJWTClaims(c))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, pair.AccessToken, gotToken)
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	pair, _ := issuePair(t, svc)
	expired, _ := issuePair(t, newTestJWTService(-time.Minute))

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"not bearer", "Basic abc", dto.ErrCodeUnauthorized},
		{"empty bearer", BearerPrefix, dto.ErrCodeUnauthorized},
		{"garbage", BearerPrefix + "not-a-jwt", dto.ErrCodeUnauthorized},
		{"refresh token", BearerPrefix + pair.RefreshToken, dto.ErrCodeUnauthorized},
		{"expired", BearerPrefix + expired.AccessToken, dto.ErrCodeTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := jwtRouter(JWTMiddlewareConfig{Validator: svc}, func(c *gin.Context) {
				t.Fatal("handler must not run")
			})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			errInfo := decodeError(t, rec)
			if tt.code != dto.ErrCodeUnauthorized {
				assert.Equal(t, tt.code, errInfo.Code)
			}
			assert.NotEmpty(t, errInfo.RequestID)
		})
	}
}

func TestJWTAuth_Blacklist(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	pair, userID := issuePair(t, svc)
	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	t.Run("revoked jti", func(t *testing.T) {
		bl := auth.NewInMemoryTokenBlacklist()
		require.NoError(t, bl.AddToBlacklist(context.Background(), claims.ID, time.Minute))

		r := jwtRouter(JWTMiddlewareConfig{Validator: svc, Blacklist: bl}, func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, dto.ErrCodeTokenRevoked, decodeError(t, rec).Code)
	})

	t.Run("user invalidated after issue", func(t *testing.T) {
		bl := auth.NewInMemoryTokenBlacklist()
		require.NoError(t, bl.InvalidateUser(context.Background(), userID.String(), time.Hour))

		r := jwtRouter(JWTMiddlewareConfig{Validator: svc, Blacklist: bl}, func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("lookup failure fails open", func(t *testing.T) {
		r := jwtRouter(JWTMiddlewareConfig{Validator: svc, Blacklist: failingBlacklist{}}, func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+pair.AccessToken)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	r := jwtRouter(JWTMiddlewareConfig{Validator: svc, SkipPaths: []string{"/health"}}, func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetUserID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetUserID(c)
	assert.False(t, ok)
	assert.Nil(t, GetJWTClaims(c))
}

type failingBlacklist struct{}

func (failingBlacklist) AddToBlacklist(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

func (failingBlacklist) IsBlacklisted(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func (failingBlacklist) InvalidateUser(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

func (failingBlacklist) IsUserInvalidated(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis down")
}
