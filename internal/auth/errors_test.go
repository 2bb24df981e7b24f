package auth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("signup: %w", validationError("invalid email format"))

	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.NotErrorIs(t, wrapped, ErrUserExists)
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))

	store := errors.New("connection reset")
	up := upstream("failed to save user", store)
	assert.ErrorIs(t, up, ErrUpstream)
	assert.ErrorIs(t, up, store)
	assert.Equal(t, "failed to save user: connection reset", up.Error())

	assert.Same(t, ErrUserExists, upstream("failed to create user", ErrUserExists))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err         error
		wantStatus  int
		wantMessage string
	}{
		{validationError("invalid email format"), http.StatusBadRequest, "invalid email format"},
		{ErrUserExists, http.StatusConflict, "User already exists"},
		{ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{invalidOrExpired("invalid or expired reset token"), http.StatusBadRequest, "invalid or expired reset token"},
		{ErrUserNotFound, http.StatusNotFound, "User not found"},
		{ErrInvalidToken, http.StatusUnauthorized, "Unauthorized - invalid token"},
		{upstream("failed to save user", errors.New("db down")), http.StatusInternalServerError, "internal server error"},
		{errors.New("unexpected"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, message := StatusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}
