// Package session issues, validates and expires the admin's login session.
package session

import (
	"context"
	"time"
)

// Session is the server-held record behind a session cookie.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	LoggedIn  bool      `json:"logged_in"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidAt reports whether the session is logged in and unexpired at now.
func (s *Session) ValidAt(now time.Time) bool {
	return s != nil && s.LoggedIn && now.Before(s.ExpiresAt)
}

// Store holds sessions by token. Get returns (nil, nil) when the token is unknown.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}
