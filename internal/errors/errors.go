package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code, so a wrapped or re-worded error still
// compares equal to its sentinel.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	return errors.As(target, &other) && other.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// WithMessage keeps the code of a domain error but overrides its message.
// Used for provider-specific variants of the same failure.
func WithMessage(domainErr *DomainError, message string) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: message,
	}
}

// Predefined domain errors
var (
	// User errors
	ErrUserNotFound       = NewDomainError("USER_NOT_FOUND", "user not found")
	ErrEmailExists        = NewDomainError("EMAIL_EXISTS", "email already registered")
	ErrInvalidCredentials = NewDomainError("INVALID_CREDENTIALS", "invalid email or password")
	ErrAccountUnverified  = NewDomainError("ACCOUNT_UNVERIFIED", "account email is not verified")
	ErrWrongProvider      = NewDomainError("WRONG_PROVIDER", "account uses a different sign-in method")

	// Verification errors
	ErrInvalidCode    = NewDomainError("INVALID_CODE", "invalid verification code")
	ErrCodeExpired    = NewDomainError("CODE_EXPIRED", "verification code has expired, request a new one")
	ErrResendCooldown = NewDomainError("RESEND_COOLDOWN", "verification code was sent recently, try again later")
	ErrCodeExhausted  = NewDomainError("CODE_EXHAUSTED", "could not generate a unique verification code")

	// Password reset errors
	ErrInvalidResetToken = NewDomainError("INVALID_RESET_TOKEN", "invalid password reset token")
	ErrResetTokenExpired = NewDomainError("RESET_TOKEN_EXPIRED", "password reset token has expired")
	ErrResetTokenUsed    = NewDomainError("RESET_TOKEN_USED", "password reset token has already been used")
	ErrPasswordMismatch  = NewDomainError("PASSWORD_MISMATCH", "password and confirmation do not match")

	// Session token errors
	ErrUnauthorized   = NewDomainError("UNAUTHORIZED", "unauthorized")
	ErrInvalidToken   = NewDomainError("INVALID_TOKEN", "invalid or expired token")
	ErrTokenRevoked   = NewDomainError("TOKEN_REVOKED", "token has been revoked")
	ErrWrongTokenType = NewDomainError("WRONG_TOKEN_TYPE", "wrong token type for this operation")

	// System errors
	ErrInvalidInput       = NewDomainError("INVALID_INPUT", "invalid input")
	ErrInternal           = NewDomainError("INTERNAL_ERROR", "internal server error")
	ErrServiceUnavailable = NewDomainError("SERVICE_UNAVAILABLE", "service unavailable")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	return http.StatusInternalServerError
}

// domainErrorToHTTPStatus maps specific domain errors to HTTP status codes
func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "INVALID_INPUT", "PASSWORD_MISMATCH", "WRONG_TOKEN_TYPE":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED", "INVALID_CREDENTIALS", "INVALID_TOKEN", "TOKEN_REVOKED",
		"ACCOUNT_UNVERIFIED", "WRONG_PROVIDER", "INVALID_CODE", "CODE_EXPIRED",
		"INVALID_RESET_TOKEN", "RESET_TOKEN_EXPIRED", "RESET_TOKEN_USED":
		return http.StatusUnauthorized

	// 404 Not Found
	case "USER_NOT_FOUND":
		return http.StatusNotFound

	// 409 Conflict
	case "EMAIL_EXISTS":
		return http.StatusConflict

	// 429 Too Many Requests
	case "RESEND_COOLDOWN":
		return http.StatusTooManyRequests

	// 503 Service Unavailable
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default)
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}
