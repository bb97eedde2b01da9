package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode_WalksWrappedChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "store unreachable")
	wrapped := fmt.Errorf("loading session: %w", err)

	assert.True(t, HasCode(wrapped, CodeUnavailable))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.True(t, errors.Is(wrapped, cause))
}

func TestHasCode_UncodedError(t *testing.T) {
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	assert.Equal(t, CodeInternal, GetCode(errors.New("plain")))
}

func TestWrap_NilPassthrough(t *testing.T) {
	require.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestMessage_HidesCause(t *testing.T) {
	err := Wrap(errors.New("pq: duplicate key value"), CodeConflict, "client already registered")
	assert.Equal(t, "client already registered", Message(err))
	assert.Contains(t, err.Error(), "duplicate key")
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeBadRequest, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeInvariantViolation, http.StatusConflict},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(New(tt.code, "x")))
		})
	}
}
