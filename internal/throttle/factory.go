package throttle

import (
	"context"

	"github.com/redis/go-redis/v9"
	"shoplist/pkg/logger"
)

// NewStore picks the Redis store when a client is available, memory otherwise.
func NewStore(ctx context.Context, client *redis.Client) Store {
	if client != nil {
		logger.Info(ctx, "Using Redis login throttle store")
		return NewRedisStore(client)
	}
	logger.Info(ctx, "Using in-memory login throttle store")
	return NewMemoryStore()
}
