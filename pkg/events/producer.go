package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/skincare_shop/pkg/logging"
)

const (
	TopicUser    = "user_events"
	TopicProduct = "product_events"
	TopicOrder   = "order_events"
	TopicPayment = "payment_events"
	TopicEnquiry = "enquiry_events"

	publishTimeout = 5 * time.Second
)

// Event is the JSON payload of every message; "type" names the event.
type Event map[string]any

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event Event) error
	Close() error
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           publishTimeout,
		},
	}
}

// New returns a kafka producer, or Noop when no brokers are configured.
func New(brokers []string) Publisher {
	if len(brokers) == 0 {
		return Noop{}
	}
	return NewProducer(brokers)
}

func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event Event) error {
	if _, ok := event["occurred_at"]; !ok {
		event["occurred_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Emit publishes with a bounded timeout and only logs failures; events never fail a request.
func Emit(ctx context.Context, p Publisher, topic, key string, event Event) {
	if p == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", topic, "type", event["type"], "error", err)
	}
}

type Noop struct{}

func (Noop) PublishEvent(context.Context, string, string, Event) error { return nil }
func (Noop) Close() error                                             { return nil }
