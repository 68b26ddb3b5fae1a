package throttle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "login_throttle:"
	maxTxRetries   = 20
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

var errContention = errors.New("throttle: too much contention on address")

// RedisStore keeps entries in Redis so lockouts hold across processes.
// Update is an optimistic WATCH/MULTI transaction on the address key.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (st *RedisStore) Get(ctx context.Context, addr string) (*Entry, error) {
	return st.load(ctx, st.client, redisKeyPrefix+addr)
}

func (st *RedisStore) Update(ctx context.Context, addr string, fn func(*Entry) *Entry) (*Entry, error) {
	key := redisKeyPrefix + addr
	var result *Entry
	txf := func(tx *redis.Tx) error {
		cur, err := st.load(ctx, tx, key)
		if err != nil {
			return err
		}
		next := fn(cur)
		var data []byte
		var ttl time.Duration
		if next != nil {
			ttl = next.ExpiresAt.Sub(st.now())
			if data, err = json.Marshal(next); err != nil {
				return fmt.Errorf("marshal throttle entry: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if next == nil || ttl <= 0 {
				p.Del(ctx, key)
			} else {
				p.Set(ctx, key, data, ttl)
			}
			return nil
		})
		result = next
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := st.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, errContention
}

func (st *RedisStore) Delete(ctx context.Context, addr string) error {
	if err := st.client.Del(ctx, redisKeyPrefix+addr).Err(); err != nil {
		return fmt.Errorf("delete throttle entry: %w", err)
	}
	return nil
}

func (st *RedisStore) load(ctx context.Context, c getter, key string) (*Entry, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get throttle entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal throttle entry: %w", err)
	}
	return &e, nil
}

func (st *RedisStore) setClock(now func() time.Time) { st.now = now }
