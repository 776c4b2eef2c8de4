package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/infrastructure/config"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	TokenTypeAccess    TokenType = "access"
	TokenTypeRefresh   TokenType = "refresh"
	TokenTypeAdmission TokenType = "ADMITTED"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrTokenBlacklisted = errors.New("token has been revoked")
)

// Claims are the claims of access and refresh tokens
type Claims struct {
	jwt.RegisteredClaims
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Nickname  string    `json:"nickname,omitempty"`
	TokenType TokenType `json:"token_type"`
}

// AdmissionClaims are the claims of a waiting-room admission token
type AdmissionClaims struct {
	jwt.RegisteredClaims
	UserKey    string    `json:"userKey"`
	ScheduleID string    `json:"scheduleId"`
	TokenType  TokenType `json:"type"`
}

// TokenPair represents an access and refresh token pair
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	RefreshTokenID        string    `json:"-"`
	TokenType             string    `json:"token_type"` // Bearer
}

// Subject identifies the user a token pair is issued to
type Subject struct {
	UserID   uuid.UUID
	Email    string
	Nickname string
}

// JWTService handles JWT token operations
type JWTService struct {
	accessSecret      []byte
	refreshSecret     []byte
	admissionSecret   []byte
	accessExpiration  time.Duration
	refreshExpiration time.Duration
	issuer            string
	now               func() time.Time
}

// NewJWTService creates a new JWT service. Refresh and admission secrets fall
// back to the access secret when unset.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	secret := []byte(cfg.Secret)
	pick := func(s string) []byte {
		if s == "" {
			return secret
		}
		return []byte(s)
	}
	return &JWTService{
		accessSecret:      secret,
		refreshSecret:     pick(cfg.RefreshSecret),
		admissionSecret:   pick(cfg.AdmissionSecret),
		accessExpiration:  cfg.AccessTokenExpiration,
		refreshExpiration: cfg.RefreshTokenExpiration,
		issuer:            cfg.Issuer,
		now:               time.Now,
	}
}

func (s *JWTService) registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{s.issuer},
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

// GenerateTokenPair issues a fresh access and refresh token
func (s *JWTService) GenerateTokenPair(sub Subject) (*TokenPair, error) {
	now := s.now()
	userID := sub.UserID.String()

	access := &Claims{
		RegisteredClaims: s.registered(userID, now, s.accessExpiration),
		UserID:           userID,
		Email:            sub.Email,
		Nickname:         sub.Nickname,
		TokenType:        TokenTypeAccess,
	}
	accessToken, err := sign(access, s.accessSecret)
	if err != nil {
		return nil, err
	}

	// Refresh tokens carry only what is needed to reissue.
	refresh := &Claims{
		RegisteredClaims: s.registered(userID, now, s.refreshExpiration),
		UserID:           userID,
		TokenType:        TokenTypeRefresh,
	}
	refreshToken, err := sign(refresh, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  now.Add(s.accessExpiration),
		RefreshTokenExpiresAt: now.Add(s.refreshExpiration),
		RefreshTokenID:        refresh.ID,
		TokenType:             "Bearer",
	}, nil
}

// GenerateAdmissionToken issues a waiting-room admission token
func (s *JWTService) GenerateAdmissionToken(userKey string, scheduleID uuid.UUID, ttl time.Duration) (string, error) {
	claims := &AdmissionClaims{
		RegisteredClaims: s.registered(userKey, s.now(), ttl),
		UserKey:          userKey,
		ScheduleID:       scheduleID.String(),
		TokenType:        TokenTypeAdmission,
	}
	return sign(claims, s.admissionSecret)
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validateUserToken(tokenString, s.accessSecret, TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validateUserToken(tokenString, s.refreshSecret, TokenTypeRefresh)
}

// ValidateAdmissionToken validates an admission token and returns its claims
func (s *JWTService) ValidateAdmissionToken(tokenString string) (*AdmissionClaims, error) {
	claims := &AdmissionClaims{}
	if err := s.parse(tokenString, claims, s.admissionSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAdmission {
		return nil, ErrInvalidTokenType
	}
	if claims.UserKey == "" || claims.ScheduleID == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func (s *JWTService) validateUserToken(tokenString string, secret []byte, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenString, claims, secret); err != nil {
		return nil, err
	}
	if claims.TokenType != expected {
		return nil, ErrInvalidTokenType
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return ErrTokenNotYetValid
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidClaims
	}
	return nil
}

// AccessTokenExpiration returns the access token lifetime
func (s *JWTService) AccessTokenExpiration() time.Duration { return s.accessExpiration }

// RefreshTokenExpiration returns the refresh token lifetime
func (s *JWTService) RefreshTokenExpiration() time.Duration { return s.refreshExpiration }

// UserUUID parses the user ID claim
func (c *Claims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// IssuedAtTime returns the iat claim as time.Time
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// RemainingTTL returns the time until expiry, never negative
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if d := time.Until(c.ExpiresAt.Time); d > 0 {
		return d
	}
	return 0
}

// ScheduleUUID parses the schedule ID claim
func (c *AdmissionClaims) ScheduleUUID() (uuid.UUID, error) {
	return uuid.Parse(c.ScheduleID)
}
