package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreIntegration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	m := NewManager(NewRedisStore(client), "test-secret", time.Hour)

	cookie, s, err := m.Create(ctx, "admin")
	require.NoError(t, err)

	ttl, err := client.TTL(ctx, redisKeyPrefix+s.Token).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	got, err := m.Validate(ctx, cookie)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "admin", got.Username)

	require.NoError(t, m.Destroy(ctx, cookie))
	got, err = m.Validate(ctx, cookie)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewStoreFallsBackToMemory(t *testing.T) {
	_, ok := NewStore(context.Background(), nil).(*MemoryStore)
	assert.True(t, ok)
}
