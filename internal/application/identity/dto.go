package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/domain/identity"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
}

// MemberInfo is the user summary returned with issued tokens
type MemberInfo struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Nickname string    `json:"nickname"`
}

// TokenResult is an issued access/refresh token pair
type TokenResult struct {
	AccessToken           string     `json:"access_token"`
	AccessTokenExpiresAt  time.Time  `json:"access_token_expires_at"`
	RefreshToken          string     `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time  `json:"refresh_token_expires_at"`
	TokenType             string     `json:"token_type"`
	Member                MemberInfo `json:"member_info"`
}

// LogoutInput carries the tokens to revoke. Either may be empty.
type LogoutInput struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput contains the input for creating an account
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Nickname string
}

// UpdateProfileInput changes the non-nil fields
type UpdateProfileInput struct {
	Name     *string
	Nickname *string
}

// ChangePasswordInput contains the current and new password
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// UserDTO represents user data transfer object
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Nickname  string    `json:"nickname"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToUserDTO converts a domain user
func ToUserDTO(u *identity.User) *UserDTO {
	return &UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Nickname:  u.Nickname,
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
