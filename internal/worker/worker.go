package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"shoplist/internal/cache"
	"shoplist/internal/config"
	"shoplist/internal/models"
	"shoplist/internal/queue"
	"shoplist/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const consumerGroup = "item-cache-warmers"

// Warmer reloads the cached item list whenever an item event arrives, so
// the first read after a write is usually a cache hit.
type Warmer struct {
	items cache.Lister
	cache *cache.Items
}

func NewWarmer(items cache.Lister, c *cache.Items) *Warmer {
	return &Warmer{items: items, cache: c}
}

// Run starts the Kafka consumer and feeds every event to the warmer until ctx ends.
// The cache lives in Redis, so replicas share one consumer group.
func Run(ctx context.Context, w *Warmer) {
	cfg := config.Get()
	if !cfg.KafkaEnabled() {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return
	}
	if !w.cache.Enabled() {
		logger.Info(ctx, "Worker disabled (no Redis cache to warm)")
		return
	}
	topic := queue.Topic()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  queue.Brokers(),
		Topic:    topic,
		GroupID:  consumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	var processed int64
	logger.Info(ctx, "Kafka consumer started", "topic", topic, "group", consumerGroup)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Kafka consumer stopped", "processed", atomic.LoadInt64(&processed))
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if err := w.Handle(ctx, msg.Value); err != nil {
			logger.Error(ctx, "Worker handle failed", "error", err, "offset", msg.Offset)
		}
		// Commit even on failure so a poison message cannot block the partition.
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
		atomic.AddInt64(&processed, 1)
	}
}

// Handle decodes one event and refreshes the cache.
func (w *Warmer) Handle(ctx context.Context, payload []byte) error {
	var ev models.ItemEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode item event: %w", err)
	}
	switch ev.Action {
	case models.ActionCreated, models.ActionUpdated, models.ActionToggled, models.ActionDeleted, models.ActionCleared:
	default:
		return fmt.Errorf("unknown item event action %q", ev.Action)
	}
	if _, err := w.cache.Refresh(ctx, w.items); err != nil {
		return fmt.Errorf("refresh item cache: %w", err)
	}
	logger.Debug(ctx, "Item cache warmed", "action", ev.Action, "id", ev.ID)
	return nil
}
