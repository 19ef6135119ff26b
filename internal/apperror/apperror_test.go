package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom_ClassifiesWrappedErrors(t *testing.T) {
	base := Conflict("email_taken", "email already registered")
	wrapped := fmt.Errorf("register: %w", base)

	got := From(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, KindConflict, got.Kind)
	assert.Equal(t, "email_taken", got.Code)
	assert.True(t, Is(wrapped, KindConflict))
}

func TestFrom_UnclassifiedIsInternal(t *testing.T) {
	cause := errors.New("connection reset by peer")

	got := From(cause)
	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, "internal server error", got.Message)
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, From(nil))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestWithDetails_DoesNotMutateOriginal(t *testing.T) {
	base := Validation("weak_password", "password does not meet policy")
	detailed := base.WithDetails([]string{"missing_digit"})

	assert.Nil(t, base.Details)
	assert.Equal(t, []string{"missing_digit"}, detailed.Details)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindAuth, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindQuotaExceeded, http.StatusTooManyRequests},
		{KindConflict, http.StatusConflict},
		{KindNotFound, http.StatusNotFound},
		{KindInternal, http.StatusInternalServerError},
		{Kind("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.kind))
		})
	}
}
