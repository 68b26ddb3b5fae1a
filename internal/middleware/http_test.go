package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func okHandler(c *gin.Context) { c.String(http.StatusOK, "ok") }

func TestForceHTTPS(t *testing.T) {
	r := gin.New()
	r.Use(ForceHTTPS(true, "/health"))
	r.GET("/", okHandler)
	r.GET("/health", okHandler)

	w := serve(r, httptest.NewRequest(http.MethodGet, "http://shop.example/?q=1", nil))
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://shop.example/?q=1", w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "http://shop.example/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "https://shop.example/", nil)
	req.TLS = &tls.ConnectionState{}
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "http://shop.example/health", nil)).Code)
}

func TestForceHTTPSDisabled(t *testing.T) {
	r := gin.New()
	r.Use(ForceHTTPS(false))
	r.GET("/", okHandler)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", okHandler)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = serve(r, req)
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", okHandler)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
