package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Webhook Dispatch (WHK) ----

// ErrNoTargetsConfigured means no registered endpoint matches the event.
// Nothing is dispatched; the error is non-retriable.
func ErrNoTargetsConfigured(eventType string) *AppError {
	return New("WHK_001", fmt.Sprintf("No webhook targets configured for event type %q", eventType), http.StatusUnprocessableEntity)
}

func ErrInvalidEventType(eventType string) *AppError {
	return New("WHK_002", fmt.Sprintf("Unknown event type %q", eventType), http.StatusBadRequest)
}

func ErrEventNotFound() *AppError {
	return New("WHK_003", "Webhook event not found", http.StatusNotFound)
}

func ErrEndpointNotFound() *AppError {
	return New("WHK_004", "Webhook endpoint not found", http.StatusNotFound)
}

func ErrBreakerNotFound(name string) *AppError {
	return New("WHK_005", fmt.Sprintf("No circuit breaker registered for %q", name), http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidAPIKey() *AppError {
	return New("AUTH_002", "Invalid API key", http.StatusUnauthorized)
}

func ErrRateLimitExceeded() *AppError {
	return New("AUTH_003", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("WHK_000", message, http.StatusBadRequest)
}
