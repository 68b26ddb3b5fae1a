package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps sessions in Redis as JSON with a TTL ending at expiry,
// so several processes can share logins.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (st *RedisStore) Save(ctx context.Context, s *Session) error {
	ttl := s.ExpiresAt.Sub(st.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := st.client.Set(ctx, redisKeyPrefix+s.Token, data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (st *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := st.client.Get(ctx, redisKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if !s.ValidAt(st.now()) {
		_ = st.Delete(ctx, token)
		return nil, nil
	}
	return &s, nil
}

func (st *RedisStore) Delete(ctx context.Context, token string) error {
	if err := st.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (st *RedisStore) setClock(now func() time.Time) { st.now = now }
