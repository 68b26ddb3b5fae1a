package middleware

import (
	"net/http"

	"shoplist/internal/apperr"
	"shoplist/internal/session"
	"shoplist/internal/throttle"
	"shoplist/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "shoplist_session"

const (
	sessionKey  = "session"
	throttleKey = "throttle_status"
)

// Check is one step of a gate. Allow returns nil to let the request through.
type Check struct {
	Name  string
	Allow func(c *gin.Context) error
}

// DenyFunc writes the response for a rejected request. It must abort c.
type DenyFunc func(c *gin.Context, err error)

// Gate runs checks in order before the handler; the first failure is handed
// to deny and nothing after it runs.
func Gate(deny DenyFunc, checks ...Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, chk := range checks {
			if err := chk.Allow(c); err != nil {
				logger.Debug(c.Request.Context(), "Gate check denied", "check", chk.Name, "path", c.FullPath(), "error", err)
				deny(c, err)
				if !c.IsAborted() {
					c.Abort()
				}
				return
			}
		}
		c.Next()
	}
}

// SessionCheck requires a valid session and exposes it via CurrentSession.
func SessionCheck(mgr *session.Manager) Check {
	return Check{
		Name: "session",
		Allow: func(c *gin.Context) error {
			cookie, _ := c.Cookie(SessionCookie)
			s, err := mgr.Validate(c.Request.Context(), cookie)
			if err != nil {
				return apperr.Store("validate session", err)
			}
			if s == nil {
				return &apperr.AuthError{}
			}
			c.Set(sessionKey, s)
			return nil
		},
	}
}

// ThrottleCheck rejects client addresses that are locked out of login.
func ThrottleCheck(th *throttle.Throttle) Check {
	return Check{
		Name: "throttle",
		Allow: func(c *gin.Context) error {
			st, err := th.Check(c.Request.Context(), c.ClientIP())
			if err != nil {
				return apperr.Store("check login throttle", err)
			}
			c.Set(throttleKey, st)
			return st.Err()
		},
	}
}

// CurrentSession returns the session stored by SessionCheck.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*session.Session)
	return s, ok
}

// DenyJSON answers {"error": ...} with the status the error maps to.
func DenyJSON(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "Request failed", "error", err, "path", c.Request.URL.Path)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

// DenyRedirect sends unauthenticated page requests to path.
func DenyRedirect(path string) DenyFunc {
	return func(c *gin.Context, err error) {
		status := apperr.HTTPStatus(err)
		if status == http.StatusUnauthorized {
			c.Redirect(http.StatusFound, path)
			c.Abort()
			return
		}
		if status >= http.StatusInternalServerError {
			logger.Error(c.Request.Context(), "Request failed", "error", err, "path", c.Request.URL.Path)
		}
		c.AbortWithStatus(status)
	}
}
