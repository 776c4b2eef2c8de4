package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/domain/waiting"
	"github.com/roovies/concert-reservation/internal/interfaces/http/dto"
)

// AdmissionKey holds the *waiting.Admission of a gated request.
const AdmissionKey = "admission"

// AdmissionValidator checks waiting-room admission tokens.
type AdmissionValidator interface {
	ValidateAdmission(ctx context.Context, token string) (*waiting.Admission, error)
}

// RequireAdmission lets a request through only with a live admission token in
// X-Admission-Token issued to the authenticated user. It must run after JWTAuth.
func RequireAdmission(validator AdmissionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(AdmissionTokenHeader)
		if token == "" {
			abortWithError(c, http.StatusForbidden, dto.ErrCodeAdmissionRequired,
				"A waiting-room admission token is required")
			return
		}

		admission, err := validator.ValidateAdmission(c.Request.Context(), token)
		if err != nil {
			if de, ok := shared.AsDomainError(err); ok {
				abortWithError(c, http.StatusForbidden, dto.ErrCodeAdmissionRequired, de.Message)
				return
			}
			abortWithError(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable,
				"Admission could not be verified")
			return
		}

		userID, ok := GetUserID(c)
		if !ok || admission.UserKey.BelongsTo(userID) != nil {
			abortWithError(c, http.StatusForbidden, dto.ErrCodeAdmissionRequired,
				"Admission token belongs to another user")
			return
		}

		c.Set(AdmissionKey, admission)
		c.Next()
	}
}

// GetAdmission returns the admission stored by RequireAdmission.
func GetAdmission(c *gin.Context) *waiting.Admission {
	if v, ok := c.Get(AdmissionKey); ok {
		if a, ok := v.(*waiting.Admission); ok {
			return a
		}
	}
	return nil
}
