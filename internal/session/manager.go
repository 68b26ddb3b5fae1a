package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"shoplist/pkg/logger"
)

// Manager creates, validates and destroys sessions. The value handed to the
// client is an HS256 token whose ID claim names the server-side record; the
// record stays authoritative so logout takes effect immediately.
type Manager struct {
	store    Store
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

type Option func(*Manager)

// WithClock overrides time.Now for the manager and its store.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

type clockSetter interface {
	setClock(func() time.Time)
}

func NewManager(store Store, secret string, lifetime time.Duration, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if cs, ok := store.(clockSetter); ok {
		cs.setClock(m.now)
	}
	return m
}

// Lifetime is the absolute session duration.
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// Create starts a session for username, who must already be authenticated,
// and returns the signed cookie value.
func (m *Manager) Create(ctx context.Context, username string) (string, *Session, error) {
	now := m.now()
	s := &Session{
		Token:     uuid.NewString(),
		Username:  username,
		LoggedIn:  true,
		CreatedAt: now,
		ExpiresAt: ceilSecond(now.Add(m.lifetime)),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return "", nil, err
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        s.Token,
		Subject:   s.Username,
		IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	})
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		_ = m.store.Delete(ctx, s.Token)
		return "", nil, err
	}
	return signed, s, nil
}

// Validate returns the live session behind cookie, or (nil, nil) when the
// cookie is missing, forged, expired, or its session was destroyed. A non-nil
// error means the store failed.
func (m *Manager) Validate(ctx context.Context, cookie string) (*Session, error) {
	claims, ok := m.parse(ctx, cookie, jwt.WithExpirationRequired(), jwt.WithTimeFunc(m.now))
	if !ok {
		return nil, nil
	}
	s, err := m.store.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Username != claims.Subject {
		return nil, nil
	}
	if !s.ValidAt(m.now()) {
		_ = m.store.Delete(ctx, s.Token)
		return nil, nil
	}
	return s, nil
}

// Destroy ends the session behind cookie. Unknown or malformed cookies are ignored.
func (m *Manager) Destroy(ctx context.Context, cookie string) error {
	claims, ok := m.parse(ctx, cookie, jwt.WithoutClaimsValidation())
	if !ok {
		return nil
	}
	return m.store.Delete(ctx, claims.ID)
}

func (m *Manager) parse(ctx context.Context, cookie string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, bool) {
	if cookie == "" {
		return nil, false
	}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(cookie, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			logger.Debug(ctx, "Session cookie rejected", "error", err)
		}
		return nil, false
	}
	if claims.ID == "" {
		return nil, false
	}
	return claims, true
}

// ceilSecond rounds t up to a whole second, the precision of the token's
// exp claim, so expiry is never earlier than the full lifetime.
func ceilSecond(t time.Time) time.Time {
	if f := t.Truncate(time.Second); !f.Equal(t) {
		return f.Add(time.Second)
	}
	return t
}
