package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Expired entries are dropped
// when read and swept on each Save; there is no background goroutine.
type MemoryStore struct {
	sessions sync.Map
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (st *MemoryStore) Save(_ context.Context, s *Session) error {
	st.sweep()
	cp := *s
	st.sessions.Store(s.Token, cp)
	return nil
}

func (st *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	val, ok := st.sessions.Load(token)
	if !ok {
		return nil, nil
	}
	s := val.(Session)
	if !s.ValidAt(st.now()) {
		st.sessions.Delete(token)
		return nil, nil
	}
	return &s, nil
}

func (st *MemoryStore) Delete(_ context.Context, token string) error {
	st.sessions.Delete(token)
	return nil
}

// Len counts stored sessions, expired ones included.
func (st *MemoryStore) Len() int {
	n := 0
	st.sessions.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func (st *MemoryStore) sweep() {
	now := st.now()
	st.sessions.Range(func(key, value interface{}) bool {
		if s := value.(Session); !s.ValidAt(now) {
			st.sessions.Delete(key)
		}
		return true
	})
}

func (st *MemoryStore) setClock(now func() time.Time) { st.now = now }
