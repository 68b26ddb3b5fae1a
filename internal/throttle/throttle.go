// Package throttle tracks failed logins per client address and applies
// progressive lockout.
package throttle

import (
	"context"
	"time"

	"shoplist/internal/apperr"
	"shoplist/pkg/logger"
)

const (
	// Window is how far back failed attempts count.
	Window = 15 * time.Minute
	// MaxAttempts is the failure count at which lockout starts.
	MaxAttempts = 5
)

// LockoutDuration returns how long an address stays locked after its
// attempts-th failure inside the window.
func LockoutDuration(attempts int) time.Duration {
	switch {
	case attempts < MaxAttempts:
		return 0
	case attempts <= 6:
		return time.Minute
	case attempts <= 8:
		return 5 * time.Minute
	case attempts <= 10:
		return 15 * time.Minute
	default:
		return time.Hour
	}
}

// Status is what a caller learns about an address after a check or failure.
type Status struct {
	Locked            bool
	RetryAfter        time.Duration
	Attempts          int
	RemainingAttempts int
}

// RemainingSeconds is RetryAfter rounded up to whole seconds.
func (s Status) RemainingSeconds() int {
	return apperr.Seconds(s.RetryAfter)
}

// Err returns a RateLimitError while locked, nil otherwise.
func (s Status) Err() error {
	if !s.Locked {
		return nil
	}
	return &apperr.RateLimitError{RetryAfter: s.RetryAfter}
}

// Throttle applies the lockout policy on top of a Store.
type Throttle struct {
	store Store
	now   func() time.Time
}

type Option func(*Throttle)

// WithClock overrides time.Now for the throttle and its store.
func WithClock(now func() time.Time) Option {
	return func(t *Throttle) { t.now = now }
}

func New(store Store, opts ...Option) *Throttle {
	t := &Throttle{store: store, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	if cs, ok := store.(clockSetter); ok {
		cs.setClock(t.now)
	}
	return t
}

// Check reports whether addr may attempt a login right now. Stale attempts
// are pruned and the record is dropped once nothing in it is live.
func (t *Throttle) Check(ctx context.Context, addr string) (Status, error) {
	now := t.now()
	e, err := t.store.Get(ctx, addr)
	if err != nil {
		return Status{}, err
	}
	if e == nil {
		return statusOf(nil, now), nil
	}
	if e.stale(now) {
		e, err = t.store.Update(ctx, addr, func(cur *Entry) *Entry {
			if cur == nil {
				return nil
			}
			cur.prune(now)
			if cur.empty(now) {
				return nil
			}
			return cur
		})
		if err != nil {
			return Status{}, err
		}
	}
	return statusOf(e, now), nil
}

// Fail records a failed login from addr and returns the resulting status.
func (t *Throttle) Fail(ctx context.Context, addr string) (Status, error) {
	now := t.now()
	e, err := t.store.Update(ctx, addr, func(cur *Entry) *Entry {
		if cur == nil {
			cur = &Entry{}
		}
		cur.prune(now)
		cur.Attempts = append(cur.Attempts, now)
		if n := len(cur.Attempts); n >= MaxAttempts {
			until := now.Add(LockoutDuration(n))
			if cur.LockedUntil == nil || until.After(*cur.LockedUntil) {
				cur.LockedUntil = &until
			}
		}
		cur.ExpiresAt = cur.expiry()
		return cur
	})
	if err != nil {
		return Status{}, err
	}
	st := statusOf(e, now)
	if st.Locked {
		logger.Warn(ctx, "Login locked out", "addr", addr, "attempts", st.Attempts, "retry_after_sec", st.RemainingSeconds())
	}
	return st, nil
}

// Succeed forgets everything about addr.
func (t *Throttle) Succeed(ctx context.Context, addr string) error {
	return t.store.Delete(ctx, addr)
}

func statusOf(e *Entry, now time.Time) Status {
	st := Status{RemainingAttempts: MaxAttempts}
	if e == nil {
		return st
	}
	cp := e.clone()
	cp.prune(now)
	st.Attempts = len(cp.Attempts)
	if cp.LockedUntil != nil && cp.LockedUntil.After(now) {
		st.Locked = true
		st.RetryAfter = cp.LockedUntil.Sub(now)
	}
	if r := MaxAttempts - st.Attempts; r > 0 {
		st.RemainingAttempts = r
	} else {
		st.RemainingAttempts = 0
	}
	return st
}
