package dto

import (
	"net/http"
	"strings"
)

// General error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeRequestTooLarge    = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeTokenRevoked       = "TOKEN_REVOKED"
	ErrCodeUserDeleted        = "USER_DELETED"
	ErrCodeAdmissionRequired  = "ADMISSION_REQUIRED"
)

// Resource error codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeOptimisticLock      = "OPTIMISTIC_LOCK_FAILED"
	ErrCodeDuplicateRequest    = "DUPLICATE_REQUEST"
	ErrCodeSeatUnavailable     = "SEAT_UNAVAILABLE"
	ErrCodeLockTimeout         = "LOCK_TIMEOUT"
)

// Business rule error codes
const (
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeInsufficientSeats   = "INSUFFICIENT_SEATS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Codes with the
// INVALID_ or DUPLICATE_ prefix that are not listed here are input errors.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeRequestTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:        http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeTokenInvalid:       http.StatusUnauthorized,
	ErrCodeTokenRevoked:       http.StatusUnauthorized,
	ErrCodeUserDeleted:        http.StatusUnauthorized,
	ErrCodeAdmissionRequired:  http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeOptimisticLock:      http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,
	ErrCodeSeatUnavailable:     http.StatusConflict,
	ErrCodeLockTimeout:         http.StatusConflict,

	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance: http.StatusUnprocessableEntity,
	ErrCodeInsufficientSeats:   http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 when unknown.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") || strings.HasPrefix(code, "DUPLICATE_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// IsServerError reports whether the code maps to a 5xx status.
func IsServerError(code string) bool {
	return GetHTTPStatus(code) >= http.StatusInternalServerError
}
