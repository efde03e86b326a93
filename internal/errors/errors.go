// Package errors provides the error responses of the HTTP API.
// Handlers return AppErrors so that clients get a stable code and message
// and internal details stay in the logs.
package errors

import (
	"net/http"

	"stockchart/internal/quote"
)

// AppError is an error with a client-facing code, message and HTTP status,
// and an optional internal cause.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap copies sentinel and attaches an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage copies sentinel with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Chart errors.
var (
	ErrNoData               = &AppError{Code: "NO_DATA", Message: "No data has been loaded yet", StatusCode: http.StatusNotFound}
	ErrFetchFailed          = &AppError{Code: "FETCH_FAILED", Message: quote.FetchFailed.Message(), StatusCode: http.StatusConflict}
	ErrInvalidSymbolOrLimit = &AppError{Code: "INVALID_SYMBOL_OR_LIMIT", Message: quote.InvalidSymbolOrLimit.Message(), StatusCode: http.StatusConflict}
)

// FromErrorKind maps a failed fetch to its response. It returns nil for
// ErrorNone.
func FromErrorKind(k quote.ErrorKind) *AppError {
	switch k {
	case quote.ErrorNone:
		return nil
	case quote.InvalidSymbolOrLimit:
		return ErrInvalidSymbolOrLimit
	default:
		return ErrFetchFailed
	}
}
