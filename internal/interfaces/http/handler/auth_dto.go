package handler

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"fan@example.com"`
	Password string `json:"password" binding:"required,max=128" example:"pwd1111!!"`
}

// ReissueRequest carries the refresh token to exchange
type ReissueRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke alongside
// the access token of the request
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest represents the request body for creating an account
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255" example:"fan@example.com"`
	Password string `json:"password" binding:"required,min=8,max=128" example:"roovies1234@@"`
	Name     string `json:"name" binding:"required,max=50"`
	Nickname string `json:"nickname" binding:"required,max=30"`
}

// UpdateProfileRequest changes the fields that are present
type UpdateProfileRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=50"`
	Nickname *string `json:"nickname" binding:"omitempty,min=1,max=30"`
}

// ChangePasswordRequest represents the request body for password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
}

// DeleteAccountRequest confirms account deletion with the password
type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}
