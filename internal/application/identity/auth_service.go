package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/identity"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthService handles login, token rotation and logout
type AuthService struct {
	userRepo     identity.UserRepository
	jwtService   *auth.JWTService
	refreshStore auth.RefreshTokenStore
	blacklist    auth.TokenBlacklist
	logger       *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	refreshStore auth.RefreshTokenStore,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		jwtService:   jwtService,
		refreshStore: refreshStore,
		blacklist:    blacklist,
		logger:       logger,
	}
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*TokenResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login for unknown email")
			return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
		}
		return nil, err
	}

	if !user.CanLogin() {
		s.logger.Warn("Login attempt for deleted account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("USER_DELETED", "Account has been deleted")
	}
	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	result, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	return result, nil
}

// Reissue rotates a refresh token. The presented token is consumed, so a
// second use of the same token fails.
func (s *AuthService) Reissue(ctx context.Context, refreshToken string) (*TokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err, "Refresh token")
	}
	userID, err := claims.UserUUID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}

	consumed, err := s.refreshStore.Consume(ctx, claims.UserID, claims.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		s.logger.Warn("Reuse of revoked refresh token", zap.String("user_id", claims.UserID))
		return nil, shared.NewDomainError("UNAUTHORIZED", "Refresh token has been revoked")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("UNAUTHORIZED", "User no longer exists")
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, shared.NewDomainError("USER_DELETED", "Account has been deleted")
	}
	return s.issue(ctx, user)
}

// Logout blacklists the access token for its remaining lifetime and revokes
// the refresh token. Tokens that are already invalid are ignored.
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.AccessToken != "" {
		if claims, err := s.jwtService.ValidateAccessToken(input.AccessToken); err == nil {
			if ttl := claims.RemainingTTL(); ttl > 0 {
				if err := s.blacklist.AddToBlacklist(ctx, claims.ID, ttl); err != nil {
					return err
				}
			}
			s.logger.Info("User logged out", zap.String("user_id", claims.UserID))
		}
	}
	if input.RefreshToken != "" {
		if claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken); err == nil {
			if _, err := s.refreshStore.Consume(ctx, claims.UserID, claims.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// RevokeAll invalidates every token issued to the user so far
func (s *AuthService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshStore.RevokeAll(ctx, userID.String()); err != nil {
		return err
	}
	return s.blacklist.InvalidateUser(ctx, userID.String(), s.jwtService.AccessTokenExpiration())
}

func (s *AuthService) issue(ctx context.Context, user *identity.User) (*TokenResult, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.Subject{
		UserID:   user.ID,
		Email:    user.Email,
		Nickname: user.Nickname,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}
	if err := s.refreshStore.Save(ctx, user.ID.String(), pair.RefreshTokenID, s.jwtService.RefreshTokenExpiration()); err != nil {
		return nil, err
	}
	return &TokenResult{
		AccessToken:           pair.AccessToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		Member: MemberInfo{
			ID:       user.ID,
			Email:    user.Email,
			Nickname: user.Nickname,
		},
	}, nil
}

// tokenError maps JWT validation errors to domain errors
func tokenError(err error, what string) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", what+" has expired")
	case errors.Is(err, auth.ErrInvalidTokenType):
		return shared.NewDomainError("TOKEN_INVALID", what+" has the wrong type")
	default:
		return shared.NewDomainError("TOKEN_INVALID", what+" is invalid")
	}
}
