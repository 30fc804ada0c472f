package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsAppError_ThroughWrapping(t *testing.T) {
	base := NewNotFound("sale", "42")
	wrapped := fmt.Errorf("load sale: %w", base)

	got, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Same(t, base, got)
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(wrapped))
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}

func TestNewInvalidSaleItem(t *testing.T) {
	err := NewInvalidSaleItem(2, "quantity", "must be a positive integer")

	assert.Equal(t, CodeInvalidSaleItem, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, 2, err.Details["index"])
	assert.Equal(t, "quantity", err.Details["field"])
	assert.True(t, IsValidation(err))
}

func TestWithCause_Unwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(nil).WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestNew_StatusFollowsCode(t *testing.T) {
	assert.Equal(t, http.StatusRequestEntityTooLarge, NewPayloadTooLarge(1024).HTTPStatus)
	assert.Equal(t, http.StatusConflict, NewIdempotencyMismatch("k").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, New("SOMETHING_ELSE", "x").HTTPStatus)
	assert.False(t, IsValidation(NewPayloadTooLarge(1)))
}
