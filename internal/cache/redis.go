package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"shoplist/internal/config"
	"shoplist/internal/models"
	"shoplist/pkg/logger"
)

const (
	itemsCacheKey      = "items:all"
	itemsGenerationKey = "items:gen"
)

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the global Redis client, or nil when REDIS_URL is unset or unreachable.
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		if !cfg.RedisEnabled() {
			logger.Info(ctx, "Redis disabled (REDIS_URL not set)")
			return
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error(ctx, "Invalid REDIS_URL", "error", err)
			return
		}
		opts.PoolSize = cfg.RedisPoolSize
		c := redis.NewClient(opts)
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Error(ctx, "Redis ping failed", "error", err)
			_ = c.Close()
			return
		}
		client = c
		logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	})
	return client
}

// Items caches the serialized item list. A nil client turns every call into
// a miss or a no-op, so callers never branch on whether Redis is configured.
//
// Every invalidation bumps a generation counter; a list read from the
// database is only written back if the generation is unchanged, so a load
// that raced a write cannot resurrect stale data.
type Items struct {
	client *redis.Client
	ttl    time.Duration
}

// NewItems returns a list cache over c with the given TTL.
func NewItems(c *redis.Client, ttl time.Duration) *Items {
	return &Items{client: c, ttl: ttl}
}

// Enabled reports whether a Redis client backs the cache.
func (c *Items) Enabled() bool {
	return c != nil && c.client != nil
}

// GetRaw returns the cached JSON list. Returns (nil, false) on miss or error.
func (c *Items) GetRaw(ctx context.Context) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	b, err := c.client.Get(ctx, itemsCacheKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get items failed", "error", err)
		return nil, false
	}
	return b, true
}

// Get returns the cached list decoded. Returns (nil, false) on miss or error.
func (c *Items) Get(ctx context.Context) ([]models.Item, bool) {
	b, ok := c.GetRaw(ctx)
	if !ok {
		return nil, false
	}
	var items []models.Item
	if err := json.Unmarshal(b, &items); err != nil {
		logger.Debug(ctx, "Redis unmarshal items failed", "error", err)
		return nil, false
	}
	return items, true
}

// Generation returns the current invalidation counter.
func (c *Items) Generation(ctx context.Context) (int64, bool) {
	if !c.Enabled() {
		return 0, false
	}
	gen, err := c.client.Get(ctx, itemsGenerationKey).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		logger.Debug(ctx, "Redis get generation failed", "error", err)
		return 0, false
	}
	return gen, true
}

// SetRawIfGeneration stores b unless an invalidation happened after gen was read.
func (c *Items) SetRawIfGeneration(ctx context.Context, gen int64, b []byte) bool {
	if !c.Enabled() {
		return false
	}
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, itemsGenerationKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, itemsCacheKey, b, c.ttl)
			return nil
		})
		return err
	}, itemsGenerationKey)
	if err != nil {
		if !errors.Is(err, errStaleGeneration) && !errors.Is(err, redis.TxFailedErr) {
			logger.Debug(ctx, "Redis set items failed", "error", err)
		}
		return false
	}
	return true
}

// Invalidate drops the cached list and bumps the generation.
func (c *Items) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, itemsCacheKey)
		p.Incr(ctx, itemsGenerationKey)
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "Redis invalidate items failed", "error", err)
	}
}

var errStaleGeneration = errors.New("cache: generation changed")

// Lister loads the authoritative item list.
type Lister interface {
	ListAll(ctx context.Context) ([]models.Item, error)
}

// Refresh loads the list from l, stores it when no invalidation raced the
// load, and returns the JSON either way.
func (c *Items) Refresh(ctx context.Context, l Lister) ([]byte, error) {
	gen, genOK := c.Generation(ctx)
	items, err := l.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	if genOK {
		c.SetRawIfGeneration(ctx, gen, b)
	}
	return b, nil
}
