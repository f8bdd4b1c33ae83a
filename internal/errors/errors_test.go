package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeInvalidCredentials, http.StatusUnauthorized},
		{CodeInvalidRefreshToken, http.StatusUnauthorized},
		{CodeNotFound, http.StatusNotFound},
		{CodeForbidden, http.StatusForbidden},
		{CodeConflict, http.StatusBadRequest},
		{CodeValidation, http.StatusBadRequest},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFound("deck not found")

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrForbidden))

	wrapped := fmt.Errorf("loading deck: %w", err)
	assert.True(t, Is(wrapped, ErrNotFound))

	var domainErr *Error
	assert.True(t, As(wrapped, &domainErr))
	assert.Equal(t, "deck not found", domainErr.Message)
}

func TestError_WithCause(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := Internal(cause)

	assert.True(t, Is(err, ErrInternal))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error: disk on fire", err.Error())
	assert.Equal(t, "internal server error", ErrInternal.Error())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, StatusOf(fmt.Errorf("wrap: %w", ErrForbidden)))
	assert.Equal(t, http.StatusBadRequest, StatusOf(Validationf("field %s is required", "name")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(fmt.Errorf("plain")))
}
