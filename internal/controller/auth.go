package controller

import (
	"errors"
	"fmt"
	"net/http"

	"shoplist/internal/apperr"
	"shoplist/internal/metrics"
	"shoplist/internal/middleware"
	"shoplist/internal/session"
	"shoplist/internal/throttle"
	"shoplist/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Auth serves the login, logout and index pages.
type Auth struct {
	sessions *session.Manager
	creds    *session.Credentials
	throttle *throttle.Throttle
	metrics  *metrics.Metrics
}

func NewAuth(sessions *session.Manager, creds *session.Credentials, th *throttle.Throttle, m *metrics.Metrics) *Auth {
	return &Auth{sessions: sessions, creds: creds, throttle: th, metrics: m}
}

// Index renders the shopping list page for a logged-in session.
func (h *Auth) Index(c *gin.Context) {
	s, _ := middleware.CurrentSession(c)
	c.HTML(http.StatusOK, "index.html", gin.H{"username": s.Username})
}

// LoginPage renders the login form, or sends an already logged-in client home.
func (h *Auth) LoginPage(c *gin.Context) {
	cookie, _ := c.Cookie(middleware.SessionCookie)
	if s, err := h.sessions.Validate(c.Request.Context(), cookie); err == nil && s != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

// Login checks the submitted credentials. It runs behind the throttle check,
// so a locked-out address never reaches the password comparison.
func (h *Auth) Login(c *gin.Context) {
	ctx := c.Request.Context()
	addr := c.ClientIP()
	username := c.PostForm("username")
	password := c.PostForm("password")

	if !h.creds.Verify(username, password) {
		st, err := h.throttle.Fail(ctx, addr)
		if err != nil {
			h.DenyLogin(c, apperr.Store("record failed login", err))
			return
		}
		logger.Info(ctx, "Login failed", "client_ip", addr, "attempts", st.Attempts)
		h.metrics.Login(metrics.LoginFailed)
		if st.Locked {
			h.metrics.Lockout()
			h.renderLogin(c, st.Err().Error())
			return
		}
		h.renderLogin(c, fmt.Sprintf("Invalid credentials. %d attempt(s) remaining.", st.RemainingAttempts))
		return
	}

	if err := h.throttle.Succeed(ctx, addr); err != nil {
		h.DenyLogin(c, apperr.Store("reset login throttle", err))
		return
	}
	cookie, s, err := h.sessions.Create(ctx, username)
	if err != nil {
		h.DenyLogin(c, apperr.Store("create session", err))
		return
	}
	h.setCookie(c, cookie, int(h.sessions.Lifetime().Seconds()))
	h.metrics.Login(metrics.LoginSucceeded)
	logger.Info(ctx, "Login succeeded", "client_ip", addr, "username", s.Username)
	c.Redirect(http.StatusFound, "/")
}

// Logout destroys the session and sends the client to the login page.
func (h *Auth) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if cookie, err := c.Cookie(middleware.SessionCookie); err == nil {
		if err := h.sessions.Destroy(ctx, cookie); err != nil {
			logger.Error(ctx, "Destroy session failed", "error", err)
		}
	}
	h.setCookie(c, "", -1)
	c.Redirect(http.StatusFound, "/login")
}

// DenyLogin renders the login page for a gate rejection: the lockout message
// for a locked address, a generic failure otherwise.
func (h *Auth) DenyLogin(c *gin.Context, err error) {
	var rl *apperr.RateLimitError
	if errors.As(err, &rl) {
		h.metrics.Login(metrics.LoginLocked)
		h.renderLogin(c, rl.Error())
		c.Abort()
		return
	}
	logger.Error(c.Request.Context(), "Login failed with internal error", "error", err)
	c.HTML(http.StatusInternalServerError, "login.html", gin.H{"error": apperr.PublicMessage(err)})
	c.Abort()
}

func (h *Auth) renderLogin(c *gin.Context, msg string) {
	c.HTML(http.StatusOK, "login.html", gin.H{"error": msg})
}

func (h *Auth) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", middleware.IsSecure(c.Request), true)
}
