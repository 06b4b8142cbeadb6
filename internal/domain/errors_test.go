package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_UnwrapsToSentinel(t *testing.T) {
	cases := []struct {
		err      *Error
		sentinel error
		status   int
	}{
		{NotFound("x"), ErrNotFound, http.StatusNotFound},
		{BadRequest("x"), ErrBadRequest, http.StatusBadRequest},
		{Unauthorized("x"), ErrUnauthorized, http.StatusUnauthorized},
		{Forbidden("x"), ErrForbidden, http.StatusForbidden},
		{Conflict("x"), ErrConflict, http.StatusConflict},
		{RateLimit("x"), ErrRateLimited, http.StatusTooManyRequests},
		{Internal("x"), ErrInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Kind.String(), func(t *testing.T) {
			assert.True(t, errors.Is(tc.err, tc.sentinel))
			assert.Equal(t, tc.status, tc.err.Status())
		})
	}
}

func TestAsError_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("verify otp: %w", Forbidden("locked"))

	de, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindForbidden, de.Kind)
	assert.Equal(t, "locked", de.Message)
	assert.True(t, errors.Is(wrapped, ErrForbidden))
}

func TestAsError_PlainError(t *testing.T) {
	_, ok := AsError(errors.New("boom"))
	assert.False(t, ok)
}

func TestValidation_CarriesDetails(t *testing.T) {
	err := Validation([]string{"name"})
	assert.Equal(t, "Invalid Request", err.Message)
	assert.Equal(t, []string{"name"}, err.Details)
	assert.True(t, errors.Is(err, ErrBadRequest))
}
