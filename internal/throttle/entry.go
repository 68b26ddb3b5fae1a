package throttle

import (
	"context"
	"time"
)

// Entry is the failed-login record for one client address.
type Entry struct {
	Attempts    []time.Time `json:"attempts"`
	LockedUntil *time.Time  `json:"locked_until,omitempty"`
	// ExpiresAt is when the record stops mattering: the later of the last
	// attempt leaving the window and the lock ending. Stores may drop it then.
	ExpiresAt time.Time `json:"expires_at"`
}

// Store holds entries by address. Update must run fn and persist its result
// atomically with respect to other calls for the same address; a nil result
// deletes the entry. fn may be invoked more than once and receives a copy.
type Store interface {
	Get(ctx context.Context, addr string) (*Entry, error)
	Update(ctx context.Context, addr string, fn func(*Entry) *Entry) (*Entry, error)
	Delete(ctx context.Context, addr string) error
}

type clockSetter interface {
	setClock(func() time.Time)
}

func (e *Entry) clone() *Entry {
	if e == nil {
		return nil
	}
	cp := &Entry{
		Attempts:  append([]time.Time(nil), e.Attempts...),
		ExpiresAt: e.ExpiresAt,
	}
	if e.LockedUntil != nil {
		until := *e.LockedUntil
		cp.LockedUntil = &until
	}
	return cp
}

// prune drops attempts older than the window and a lock that has run out.
func (e *Entry) prune(now time.Time) {
	cutoff := now.Add(-Window)
	kept := e.Attempts[:0]
	for _, at := range e.Attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	e.Attempts = kept
	if e.LockedUntil != nil && !e.LockedUntil.After(now) {
		e.LockedUntil = nil
	}
	e.ExpiresAt = e.expiry()
}

// stale reports whether prune would change anything.
func (e *Entry) stale(now time.Time) bool {
	if len(e.Attempts) > 0 && !e.Attempts[0].After(now.Add(-Window)) {
		return true
	}
	return e.LockedUntil != nil && !e.LockedUntil.After(now)
}

func (e *Entry) empty(now time.Time) bool {
	return len(e.Attempts) == 0 && (e.LockedUntil == nil || !e.LockedUntil.After(now))
}

func (e *Entry) expiry() time.Time {
	var exp time.Time
	if n := len(e.Attempts); n > 0 {
		exp = e.Attempts[n-1].Add(Window)
	}
	if e.LockedUntil != nil && e.LockedUntil.After(exp) {
		exp = *e.LockedUntil
	}
	return exp
}
