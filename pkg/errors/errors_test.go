package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("email", "Please enter a valid email address"), http.StatusBadRequest},
		{"not found", NewNotFoundError("payment", "Payment not found"), http.StatusNotFound},
		{"duplicate", NewAlreadyExistsError("user", "Username already exists"), http.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("Invalid credentials"), http.StatusUnauthorized},
		{"upstream 4xx", NewUpstreamError("Access code check", http.StatusForbidden, "Invalid access code", nil), http.StatusForbidden},
		{"upstream 5xx", NewUpstreamError("Chat", http.StatusServiceUnavailable, "", nil), http.StatusBadGateway},
		{"upstream no answer", NewUpstreamError("Chat", 0, "", errors.New("connection refused")), http.StatusBadGateway},
		{"internal", NewInternalError("Failed to save user", nil), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("signup: %w", NewAlreadyExistsError("user", "taken")), http.StatusBadRequest},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestUpstreamError_Message(t *testing.T) {
	assert.Equal(t, "Invalid access code", NewUpstreamError("Access code check", 403, "Invalid access code", nil).Error())
	assert.Equal(t, "Chat failed (Status: 500)", NewUpstreamError("Chat", 500, "", nil).Error())

	cause := errors.New("dial tcp: refused")
	err := NewUpstreamError("Chat", 0, "", cause)
	assert.Equal(t, "Chat failed: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", NewNotFoundError("user", ""))))
	assert.False(t, IsNotFound(NewInternalError("x", nil)))
	assert.True(t, IsAlreadyExists(NewAlreadyExistsError("user", "")))
	assert.Equal(t, "user not found", NewNotFoundError("user", "").Error())
	assert.Equal(t, "email: bad", NewValidationError("email", "bad").Error())
}
