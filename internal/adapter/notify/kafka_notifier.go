package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// MessageWriter is the part of *kafka.Writer the notifier uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// KafkaNotifier publishes rendered notifications to a topic, keyed by order
// number so all messages of one order stay ordered.
type KafkaNotifier struct {
	writer MessageWriter
}

var _ port.Notifier = (*KafkaNotifier)(nil)

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return NewKafkaNotifierWithWriter(&kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkaGo.LeastBytes{},
		RequiredAcks:           kafkaGo.RequireOne,
		AllowAutoTopicCreation: true,
	})
}

func NewKafkaNotifierWithWriter(w MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: w}
}

func (k *KafkaNotifier) OrderConfirmed(ctx context.Context, order domain.Order) error {
	return k.publish(ctx, TypeOrderConfirmed, order)
}

func (k *KafkaNotifier) OrderStatusChanged(ctx context.Context, order domain.Order) error {
	return k.publish(ctx, TypeOrderStatusChanged, order)
}

func (k *KafkaNotifier) OrderCancelled(ctx context.Context, order domain.Order) error {
	return k.publish(ctx, TypeOrderCancelled, order)
}

func (k *KafkaNotifier) publish(ctx context.Context, kind string, order domain.Order) error {
	if order.CustomerEmail == "" {
		slog.Debug("Skipping notification without recipient", "type", kind, "order_number", order.OrderNumber)
		return nil
	}

	msg, err := Render(kind, order)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := k.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(order.OrderNumber),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish %s: %w", kind, err)
	}
	slog.Info("Notification published", "type", kind, "order_number", order.OrderNumber)
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
