package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/roovies/concert-reservation/internal/application/identity"
	"github.com/roovies/concert-reservation/internal/interfaces/http/middleware"
)

// AuthService is the session part of the identity application layer
type AuthService interface {
	Login(ctx context.Context, input identity.LoginInput) (*identity.TokenResult, error)
	Reissue(ctx context.Context, refreshToken string) (*identity.TokenResult, error)
	Logout(ctx context.Context, input identity.LogoutInput) error
}

// UserService is the account part of the identity application layer
type UserService interface {
	Register(ctx context.Context, input identity.RegisterInput) (*identity.UserDTO, error)
	GetMe(ctx context.Context, userID uuid.UUID) (*identity.UserDTO, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, input identity.UpdateProfileInput) (*identity.UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input identity.ChangePasswordInput) error
	Delete(ctx context.Context, userID uuid.UUID, password string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login godoc
// @Summary      User login
// @Description  Authenticate with email and password and receive a token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} dto.Response{data=identity.TokenResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Reissue godoc
// @Summary      Reissue tokens
// @Description  Exchange a refresh token for a new token pair. The old refresh token is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ReissueRequest true "Refresh token"
// @Success      200 {object} dto.Response{data=identity.TokenResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/reissue [post]
func (h *AuthHandler) Reissue(c *gin.Context) {
	var req ReissueRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.Reissue(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Logout godoc
// @Summary      User logout
// @Description  Revoke the access token of this request and, if given, the refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LogoutRequest false "Refresh token to revoke"
// @Success      204
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	err := h.authService.Logout(c.Request.Context(), identity.LogoutInput{
		AccessToken:  middleware.GetAccessToken(c),
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
