// Package apperror provides the structured error type returned by every layer.
// Handlers never write error bodies themselves; the ErrorHandler middleware
// renders AppError values as {code, message, details}.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInternal        = "INTERNAL_ERROR"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidSaleItem = "INVALID_SALE_ITEM"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeIdempotency     = "IDEMPOTENCY_CONFLICT"
)

var statusByCode = map[string]int{
	CodeInternal:        http.StatusInternalServerError,
	CodeValidation:      http.StatusBadRequest,
	CodeInvalidSaleItem: http.StatusBadRequest,
	CodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	CodeUnauthorized:    http.StatusUnauthorized,
	CodeForbidden:       http.StatusForbidden,
	CodeNotFound:        http.StatusNotFound,
	CodeConflict:        http.StatusConflict,
	CodeIdempotency:     http.StatusConflict,
}

// AppError is the error type understood by the HTTP layer.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"` // safe to show to API clients
	Details map[string]any `json:"details,omitempty"`

	HTTPStatus int   `json:"-"`
	Err        error `json:"-"`
}

// New builds an error whose status follows from code. Unknown codes map to 500.
func New(code, message string) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail adds a key-value pair to Details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 2)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func NewValidation(message string) *AppError   { return New(CodeValidation, message) }
func NewUnauthorized(message string) *AppError { return New(CodeUnauthorized, message) }
func NewForbidden(message string) *AppError    { return New(CodeForbidden, message) }
func NewConflict(message string) *AppError     { return New(CodeConflict, message) }

// NewInvalidSaleItem reports a malformed line in a sale payload.
// index is the zero-based position of the item in the request.
func NewInvalidSaleItem(index int, field, reason string) *AppError {
	return New(CodeInvalidSaleItem, fmt.Sprintf("item %d: %s %s", index, field, reason)).
		WithDetail("index", index).
		WithDetail("field", field)
}

// NewNotFound reports a missing entity, e.g. NewNotFound("sale", saleID).
func NewNotFound(entity string, id any) *AppError {
	return New(CodeNotFound, entity+" not found").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewPayloadTooLarge reports a body above limit bytes.
func NewPayloadTooLarge(limit int) *AppError {
	return New(CodePayloadTooLarge, "request body too large").WithDetail("max_bytes", limit)
}

// NewInternal hides err from the client.
func NewInternal(err error) *AppError {
	return New(CodeInternal, "Internal server error").WithCause(err)
}

// NewIdempotencyConflict is returned while a request with the same key is in flight.
func NewIdempotencyConflict(key string) *AppError {
	return New(CodeIdempotency, "Operation already in progress or completed").
		WithDetail("idempotency_key", key)
}

// NewIdempotencyMismatch is returned when a key is reused for a different request.
func NewIdempotencyMismatch(key string) *AppError {
	return New(CodeIdempotency, "Idempotency key mismatch").
		WithDetail("idempotency_key", key)
}

// AsAppError extracts AppError from the error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns the status for any error, 500 for non-AppError values.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

func hasCode(err error, codes ...string) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if appErr.Code == c {
			return true
		}
	}
	return false
}

// IsNotFound checks for CodeNotFound.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsValidation reports 400-class input errors.
func IsValidation(err error) bool { return hasCode(err, CodeValidation, CodeInvalidSaleItem) }
