package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/identity"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"go.uber.org/zap"
)

// TokenRevoker invalidates every token of a user
type TokenRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// UserService handles account management
type UserService struct {
	userRepo identity.UserRepository
	revoker  TokenRevoker
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo identity.UserRepository, revoker TokenRevoker, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		revoker:  revoker,
		logger:   logger,
	}
}

// Register creates an account
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*UserDTO, error) {
	user, err := identity.NewUser(input.Email, input.Password, input.Name, input.Nickname)
	if err != nil {
		return nil, err
	}
	exists, err := s.userRepo.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Email is already registered")
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	return ToUserDTO(user), nil
}

// GetMe returns the caller's profile
func (s *UserService) GetMe(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToUserDTO(user), nil
}

// UpdateMe changes name and/or nickname
func (s *UserService) UpdateMe(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(input.Name, input.Nickname); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return ToUserDTO(user), nil
}

// ChangePassword replaces the password after verifying the current one
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.ChangePassword(input.CurrentPassword, input.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info("Password changed", zap.String("user_id", userID.String()))
	return nil
}

// Delete soft-deletes the account and revokes all of its tokens
func (s *UserService) Delete(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.Delete(password); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	if err := s.revoker.RevokeAll(ctx, userID); err != nil {
		s.logger.Error("Failed to revoke tokens of deleted user",
			zap.String("user_id", userID.String()), zap.Error(err))
		return err
	}
	s.logger.Info("User deleted", zap.String("user_id", userID.String()))
	return nil
}

func (s *UserService) activeUser(ctx context.Context, userID uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, shared.NewDomainError("USER_DELETED", "User has been deleted")
	}
	return user, nil
}
