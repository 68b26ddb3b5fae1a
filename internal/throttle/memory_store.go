package throttle

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 64

type shard struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// MemoryStore spreads addresses over mutex-guarded shards so failures from
// different addresses rarely contend. Each Update sweeps expired entries
// from its shard.
type MemoryStore struct {
	shards [shardCount]shard
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	st := &MemoryStore{now: time.Now}
	for i := range st.shards {
		st.shards[i].entries = make(map[string]*Entry)
	}
	return st
}

func (st *MemoryStore) shardFor(addr string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(addr))
	return &st.shards[h.Sum32()%shardCount]
}

func (st *MemoryStore) Get(_ context.Context, addr string) (*Entry, error) {
	sh := st.shardFor(addr)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[addr]
	if !ok {
		return nil, nil
	}
	if !e.ExpiresAt.After(st.now()) {
		delete(sh.entries, addr)
		return nil, nil
	}
	return e.clone(), nil
}

func (st *MemoryStore) Update(_ context.Context, addr string, fn func(*Entry) *Entry) (*Entry, error) {
	sh := st.shardFor(addr)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := st.now()
	for k, e := range sh.entries {
		if k != addr && !e.ExpiresAt.After(now) {
			delete(sh.entries, k)
		}
	}

	next := fn(sh.entries[addr].clone())
	if next == nil {
		delete(sh.entries, addr)
		return nil, nil
	}
	sh.entries[addr] = next.clone()
	return next, nil
}

func (st *MemoryStore) Delete(_ context.Context, addr string) error {
	sh := st.shardFor(addr)
	sh.mu.Lock()
	delete(sh.entries, addr)
	sh.mu.Unlock()
	return nil
}

// Len counts tracked addresses.
func (st *MemoryStore) Len() int {
	n := 0
	for i := range st.shards {
		sh := &st.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

func (st *MemoryStore) setClock(now func() time.Time) { st.now = now }
