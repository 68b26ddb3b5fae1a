package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Validation("name", "Item name is required"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("add: %w", Validation("name", "x")), http.StatusBadRequest},
		{"auth", &AuthError{}, http.StatusUnauthorized},
		{"rate limit", &RateLimitError{RetryAfter: time.Minute}, http.StatusTooManyRequests},
		{"not found", &NotFoundError{Resource: "route"}, http.StatusNotFound},
		{"store", Store("list items", sql.ErrConnDone), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessageHidesStoreDetail(t *testing.T) {
	err := Store("list items", errors.New("disk I/O error at /var/lib/db"))
	assert.Equal(t, "Internal server error", PublicMessage(err))
	assert.ErrorIs(t, err, err.(*StoreError).Err)

	assert.Equal(t, "Item name is required", PublicMessage(Validation("name", "Item name is required")))
}

func TestStoreNil(t *testing.T) {
	assert.NoError(t, Store("op", nil))
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 0, Seconds(-time.Second))
	assert.Equal(t, 0, Seconds(0))
	assert.Equal(t, 1, Seconds(time.Millisecond))
	assert.Equal(t, 60, Seconds(time.Minute))
	assert.Equal(t, 60, Seconds(59*time.Second+time.Millisecond))
}

func TestRateLimitMessage(t *testing.T) {
	err := &RateLimitError{RetryAfter: 59500 * time.Millisecond}
	assert.Equal(t, "Too many failed attempts. Try again in 60 seconds.", err.Error())
}
