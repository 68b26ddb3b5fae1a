package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplist/internal/models"
)

func TestNilClientIsAlwaysMiss(t *testing.T) {
	ctx := context.Background()
	c := NewItems(nil, time.Minute)

	assert.False(t, c.Enabled())
	_, ok := c.GetRaw(ctx)
	assert.False(t, ok)
	_, ok = c.Get(ctx)
	assert.False(t, ok)
	_, ok = c.Generation(ctx)
	assert.False(t, ok)
	assert.False(t, c.SetRawIfGeneration(ctx, 0, []byte("[]")))
	c.Invalidate(ctx)

	var nilCache *Items
	assert.False(t, nilCache.Enabled())
}

func redisForTest(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	c := redis.NewClient(opts)
	require.NoError(t, c.Ping(context.Background()).Err())
	require.NoError(t, c.Del(context.Background(), itemsCacheKey, itemsGenerationKey).Err())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestItemsRoundTripRedis(t *testing.T) {
	ctx := context.Background()
	c := NewItems(redisForTest(t), time.Minute)

	gen, ok := c.Generation(ctx)
	require.True(t, ok)

	b, err := json.Marshal([]models.Item{{ID: 1, Name: "milk"}})
	require.NoError(t, err)
	require.True(t, c.SetRawIfGeneration(ctx, gen, b))

	items, ok := c.Get(ctx)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "milk", items[0].Name)
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	ctx := context.Background()
	c := NewItems(redisForTest(t), time.Minute)

	gen, ok := c.Generation(ctx)
	require.True(t, ok)
	c.Invalidate(ctx)

	assert.False(t, c.SetRawIfGeneration(ctx, gen, []byte(`[]`)))
	_, ok = c.GetRaw(ctx)
	assert.False(t, ok)
}

type stubLister struct {
	items []models.Item
	err   error
	calls int
}

func (s *stubLister) ListAll(context.Context) ([]models.Item, error) {
	s.calls++
	return s.items, s.err
}

func TestRefreshWithoutRedis(t *testing.T) {
	l := &stubLister{items: []models.Item{{ID: 3, Name: "oats"}}}
	b, err := NewItems(nil, time.Minute).Refresh(context.Background(), l)
	require.NoError(t, err)
	assert.Equal(t, 1, l.calls)

	var got []models.Item
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "oats", got[0].Name)
}

func TestRefreshPropagatesListError(t *testing.T) {
	l := &stubLister{err: assert.AnError}
	_, err := NewItems(nil, time.Minute).Refresh(context.Background(), l)
	assert.ErrorIs(t, err, assert.AnError)
}
