package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/infrastructure/auth"
	"github.com/roovies/concert-reservation/internal/infrastructure/logger"
	"github.com/roovies/concert-reservation/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey   = "jwt_claims"
	UserIDKey      = "user_id"
	AccessTokenKey = "access_token"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// AccessTokenValidator parses access tokens.
type AccessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Validator AccessTokenValidator
	// Blacklist is optional; when set, revoked tokens are rejected.
	Blacklist        auth.TokenBlacklist
	SkipPaths        []string
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// JWTAuth rejects requests without a valid, unrevoked bearer access token and
// stores the caller's claims in the context.
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if matchesPath(c.Request.URL.Path, cfg.SkipPaths, cfg.SkipPathPrefixes) {
			c.Next()
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			authFailed(c, log, auth.ErrInvalidToken, "missing bearer token")
			return
		}

		claims, err := cfg.Validator.ValidateAccessToken(tokenString)
		if err != nil {
			authFailed(c, log, err, "token validation failed")
			return
		}

		if cfg.Blacklist != nil {
			ctx := c.Request.Context()
			// Lookup failures fail open: Redis being down must not log
			// everyone out.
			if claims.ID != "" {
				revoked, err := cfg.Blacklist.IsBlacklisted(ctx, claims.ID)
				if err != nil {
					log.Error("Failed to check token blacklist", zap.String("jti", claims.ID), zap.Error(err))
				} else if revoked {
					authFailed(c, log, auth.ErrTokenBlacklisted, "token revoked")
					return
				}
			}
			invalidated, err := cfg.Blacklist.IsUserInvalidated(ctx, claims.UserID, claims.IssuedAtTime())
			if err != nil {
				log.Error("Failed to check user invalidation", zap.String("user_id", claims.UserID), zap.Error(err))
			} else if invalidated {
				authFailed(c, log, auth.ErrTokenBlacklisted, "user sessions invalidated")
				return
			}
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Set(AccessTokenKey, tokenString)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

func authFailed(c *gin.Context, log *zap.Logger, err error, reason string) {
	log.Debug("JWT authentication failed",
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		code, message = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidTokenType), errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrMissingUserID):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	abortWithError(c, http.StatusUnauthorized, code, message)
}

// GetJWTClaims returns the claims stored by JWTAuth.
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetUserID returns the authenticated user's ID.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(UserIDKey))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetAccessToken returns the raw bearer token of the request.
func GetAccessToken(c *gin.Context) string {
	return c.GetString(AccessTokenKey)
}
