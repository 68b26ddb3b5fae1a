package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest(http.MethodGet, "/api/items", 200, time.Millisecond)
		m.Login(LoginFailed)
		m.Lockout()
		m.ItemWrite("created")
		m.CacheLookup(true)
	})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCounters(t *testing.T) {
	m := New()
	m.Login(LoginFailed)
	m.Login(LoginFailed)
	m.Login(LoginSucceeded)
	m.Lockout()
	m.ItemWrite("created")
	m.CacheLookup(false)
	m.CacheLookup(true)
	m.CacheLookup(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues(LoginFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues(LoginSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lockouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.itemWrites.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookup.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookup.WithLabelValues("miss")))
}

func TestHandlerExposesRequests(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "", 404, time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/api/items", 201, 3*time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `shoplist_http_request_duration_seconds_count{method="POST",route="/api/items",status="201"} 1`)
	assert.Contains(t, body, `route="unmatched"`)
}
