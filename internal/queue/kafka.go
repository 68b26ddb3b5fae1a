package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"shoplist/internal/config"
	"shoplist/internal/models"
	"shoplist/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// EnsureTopic creates the item events topic with configured partitions (idempotent).
// Call at startup; if it fails (e.g. no broker or topic exists), app still runs.
func EnsureTopic(ctx context.Context) {
	cfg := config.Get()
	if !cfg.KafkaEnabled() {
		return
	}
	conn, err := kafka.Dial("tcp", cfg.KafkaBrokers[0])
	if err != nil {
		logger.Debug(ctx, "Kafka dial for topic creation failed", "error", err)
		return
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		logger.Debug(ctx, "Kafka controller lookup failed", "error", err)
		return
	}
	ctrlConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		logger.Debug(ctx, "Kafka controller dial failed", "error", err)
		return
	}
	defer ctrlConn.Close()
	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.KafkaTopic,
		NumPartitions:     cfg.KafkaPartitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Debug(ctx, "Kafka create topic failed (topic may already exist)", "error", err)
		return
	}
	logger.Info(ctx, "Kafka topic ensured", "topic", cfg.KafkaTopic, "partitions", cfg.KafkaPartitions)
}

// messageWriter is the slice of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends item events. A nil *Publisher drops every event.
type Publisher struct {
	w messageWriter
}

var (
	publisher *Publisher
	pOnce     sync.Once
)

// Producer returns the global publisher, or nil when no brokers are configured.
func Producer(ctx context.Context) *Publisher {
	pOnce.Do(func() {
		cfg := config.Get()
		if !cfg.KafkaEnabled() {
			logger.Info(ctx, "Kafka disabled (KAFKA_BROKERS not set)")
			return
		}
		publisher = &Publisher{w: &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    100,
			BatchTimeout: 0,
			Async:        true,
			RequiredAcks: kafka.RequireOne,
		}}
		logger.Info(ctx, "Kafka producer initialized", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	})
	return publisher
}

// Publish writes ev keyed by item id. Non-blocking with the async writer.
func (p *Publisher) Publish(ctx context.Context, ev *models.ItemEvent) error {
	if p == nil || p.w == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.ID, 10)),
		Value: payload,
	})
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}

// Topic returns the item events topic name.
func Topic() string {
	return config.Get().KafkaTopic
}

// Brokers returns Kafka broker addresses.
func Brokers() []string {
	return config.Get().KafkaBrokers
}
