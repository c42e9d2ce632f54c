// Package errors provides custom error types for the LifeSlice API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Slice errors.
var (
	ErrSliceNotFound     = &AppError{Code: "SLICE_NOT_FOUND", Message: "Slice not found", StatusCode: http.StatusNotFound}
	ErrDuplicateSlug     = &AppError{Code: "DUPLICATE_SLUG", Message: "A slice with this slug already exists", StatusCode: http.StatusConflict}
	ErrCompositeSlice    = &AppError{Code: "COMPOSITE_SLICE", Message: "Operation not valid for a composite slice", StatusCode: http.StatusBadRequest}
	ErrNotCompositeSlice = &AppError{Code: "NOT_COMPOSITE_SLICE", Message: "Operation only valid for a composite slice", StatusCode: http.StatusBadRequest}
	ErrNegativeTarget    = &AppError{Code: "NEGATIVE_TARGET", Message: "Target value cannot be negative", StatusCode: http.StatusBadRequest}
	ErrInvalidUpdateType = &AppError{Code: "INVALID_UPDATE_TYPE", Message: "Unsupported update type", StatusCode: http.StatusBadRequest}
)

// Component errors.
var (
	ErrComponentNotFound     = &AppError{Code: "COMPONENT_NOT_FOUND", Message: "Slice component not found", StatusCode: http.StatusNotFound}
	ErrComponentOutOfRange   = &AppError{Code: "COMPONENT_OUT_OF_RANGE", Message: "Component value is outside the allowed range", StatusCode: http.StatusBadRequest}
	ErrDuplicateComponentKey = &AppError{Code: "DUPLICATE_COMPONENT_KEY", Message: "A component with this key already exists", StatusCode: http.StatusConflict}
)

// Telegram errors.
var (
	ErrInvalidLinkCode       = &AppError{Code: "INVALID_LINK_CODE", Message: "Invalid link code", StatusCode: http.StatusBadRequest}
	ErrLinkCodeExpired       = &AppError{Code: "LINK_CODE_EXPIRED", Message: "Link code has expired", StatusCode: http.StatusBadRequest}
	ErrTelegramAlreadyLinked = &AppError{Code: "TELEGRAM_ALREADY_LINKED", Message: "This Telegram account is already linked to another user", StatusCode: http.StatusConflict}
	ErrUnknownCommand        = &AppError{Code: "UNKNOWN_COMMAND", Message: "Unknown command", StatusCode: http.StatusBadRequest}
)
