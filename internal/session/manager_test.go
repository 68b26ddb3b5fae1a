package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestManager(lifetime time.Duration) (*Manager, *MemoryStore, *fakeClock) {
	clock := newFakeClock()
	store := NewMemoryStore()
	return NewManager(store, "test-secret", lifetime, WithClock(clock.Now)), store, clock
}

func TestCreateAndValidate(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(time.Hour)

	cookie, s, err := m.Create(ctx, "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, cookie)
	assert.True(t, s.LoggedIn)
	assert.Equal(t, "admin", s.Username)
	assert.Equal(t, clock.Now().Add(time.Hour), s.ExpiresAt)

	got, err := m.Validate(ctx, cookie)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.Token, got.Token)
	assert.Equal(t, "admin", got.Username)
}

func TestSessionLifetimeBoundary(t *testing.T) {
	for _, lifetime := range []time.Duration{time.Hour, 24 * time.Hour} {
		ctx := context.Background()
		m, _, clock := newTestManager(lifetime)

		cookie, _, err := m.Create(ctx, "admin")
		require.NoError(t, err)

		clock.Advance(lifetime - time.Second)
		got, err := m.Validate(ctx, cookie)
		require.NoError(t, err)
		assert.NotNil(t, got, "valid one second before expiry")

		clock.Advance(time.Second)
		got, err = m.Validate(ctx, cookie)
		require.NoError(t, err)
		assert.Nil(t, got, "invalid at expiry")

		clock.Advance(time.Hour)
		got, err = m.Validate(ctx, cookie)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestFractionalCreationKeepsFullLifetime(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(10 * time.Second)
	clock.Advance(900 * time.Millisecond)
	created := clock.Now()

	cookie, s, err := m.Create(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, created, s.CreatedAt)
	assert.Equal(t, created.Truncate(time.Second).Add(11*time.Second), s.ExpiresAt)
	assert.False(t, s.ExpiresAt.Before(created.Add(10*time.Second)))

	claims := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(cookie, claims)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.Time.Equal(s.ExpiresAt), "exp claim matches the stored expiry")

	clock.Advance(9500 * time.Millisecond)
	got, err := m.Validate(ctx, cookie)
	require.NoError(t, err)
	assert.NotNil(t, got, "valid 9.5s into a 10s session")

	clock.Advance(500 * time.Millisecond)
	got, err = m.Validate(ctx, cookie)
	require.NoError(t, err)
	assert.NotNil(t, got, "valid exactly 10s after creation")

	clock.Advance(100 * time.Millisecond)
	got, err = m.Validate(ctx, cookie)
	require.NoError(t, err)
	assert.Nil(t, got, "expired once the rounded expiry passes")
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(time.Hour)

	cookie, _, err := m.Create(ctx, "admin")
	require.NoError(t, err)
	require.NoError(t, m.Destroy(ctx, cookie))

	got, err := m.Validate(ctx, cookie)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, store.Len())

	assert.NoError(t, m.Destroy(ctx, ""))
	assert.NoError(t, m.Destroy(ctx, "garbage"))
}

func TestDestroyAfterExpiry(t *testing.T) {
	ctx := context.Background()
	m, store, clock := newTestManager(time.Minute)

	cookie, _, err := m.Create(ctx, "admin")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	require.NoError(t, m.Destroy(ctx, cookie))
	assert.Zero(t, store.Len())
}

func TestValidateRejectsUnknownAndForged(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(time.Hour)

	got, err := m.Validate(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = m.Validate(ctx, "not-a-token")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Signed with another key.
	other := NewManager(NewMemoryStore(), "other-secret", time.Hour, WithClock(clock.Now))
	cookie, _, err := other.Create(ctx, "admin")
	require.NoError(t, err)
	got, err = m.Validate(ctx, cookie)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Correctly signed but never issued by this store.
	never := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        "missing",
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	})
	signed, err := never.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	got, err = m.Validate(ctx, signed)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	ctx := context.Background()
	m, _, clock := newTestManager(time.Hour)

	_, s, err := m.Create(ctx, "admin")
	require.NoError(t, err)

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		ID:        s.Token,
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	got, err := m.Validate(ctx, signed)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreSweepsExpiredOnSave(t *testing.T) {
	ctx := context.Background()
	m, store, clock := newTestManager(time.Minute)

	for i := 0; i < 3; i++ {
		_, _, err := m.Create(ctx, "admin")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.Len())

	clock.Advance(2 * time.Minute)
	_, _, err := m.Create(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}
