package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", http.StatusBadRequest)
	assert.Equal(t, "INVALID_INPUT: test error", err.Error())
}

func TestAppError_WithCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := NewInternalError("store failure", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewNotFoundError("stream").WithContext("id", "abc").WithContext("attempt", 2)

	assert.Equal(t, "abc", err.Context["id"])
	assert.Equal(t, 2, err.Context["attempt"])
	assert.Equal(t, "stream not found", err.Message)
}

func TestConstructors_StatusCodes(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   ErrorCode
		status int
	}{
		{NewInvalidInputError("x"), ErrCodeInvalidInput, http.StatusBadRequest},
		{NewInvalidTypeError("x"), ErrCodeInvalidType, http.StatusBadRequest},
		{NewNotFoundError("x"), ErrCodeNotFound, http.StatusNotFound},
		{NewUnauthorizedError("x"), ErrCodeUnauthorized, http.StatusUnauthorized},
		{NewForbiddenError("x"), ErrCodeForbidden, http.StatusForbidden},
		{NewRateLimitError(), ErrCodeRateLimit, http.StatusTooManyRequests},
		{NewConfigurationError("x"), ErrCodeConfiguration, http.StatusInternalServerError},
		{NewServiceUnavailableError("x"), ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.status, tc.err.HTTPStatus)
	}
}

func TestGetAppError_Unwraps(t *testing.T) {
	appErr := NewForbiddenError("denied")
	wrapped := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", appErr))

	got := GetAppError(wrapped)
	require.NotNil(t, got)
	assert.Same(t, appErr, got)
	assert.True(t, HasCode(wrapped, ErrCodeForbidden))
	assert.False(t, HasCode(wrapped, ErrCodeNotFound))

	assert.Nil(t, GetAppError(errors.New("plain")))
	assert.Nil(t, GetAppError(nil))
}

func TestAppError_WithCauseSentinel(t *testing.T) {
	sentinel := errors.New("write not applied")
	err := NewForbiddenError("access denied").WithCause(sentinel)

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 403, err.HTTPStatus)
}
