package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// TypeProductStockChanged is published by the order service whenever it moves product stock.
const TypeProductStockChanged = "product_stock_changed"

// Handler processes one decoded event; key is the kafka message key.
type Handler func(ctx context.Context, key string, ev Event) error

type Consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

func NewConsumer(brokers []string, groupID, topic string, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       1 << 20,
			CommitInterval: time.Second,
		}),
		logger: logger,
	}
}

// Run reads until ctx is done. A message whose handler fails is logged and committed.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka: read failed: %w", err)
		}
		Dispatch(ctx, c.logger, h, m.Topic, m.Key, m.Value)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Dispatch decodes value and hands it to h; it reports whether h ran without error.
func Dispatch(ctx context.Context, logger *slog.Logger, h Handler, topic string, key, value []byte) bool {
	if logger == nil {
		logger = slog.Default()
	}
	var ev Event
	if err := json.Unmarshal(value, &ev); err != nil {
		logger.Warn("kafka_decode_error", "topic", topic, "key", string(key), "error", err)
		return false
	}
	if err := h(ctx, string(key), ev); err != nil {
		logger.Warn("kafka_handle_error", "topic", topic, "type", ev["type"], "key", string(key), "error", err)
		return false
	}
	return true
}
