package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashendes/order-fulfillment/internal/metrics"
	"github.com/ashendes/order-fulfillment/internal/models"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// KafkaPublisher emits order status notifications to a Kafka topic.
// Writes are synchronous with full acks so a returned nil means the bus
// accepted the message; the workflow's retry policy handles failures.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers and topic
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// message builds the wire message: JSON payload keyed by order ID so all
// events for one order land on the same partition.
func message(notification models.OrderStatusNotification) (kafka.Message, error) {
	payload, err := json.Marshal(notification)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal notification: %w", err)
	}
	return kafka.Message{
		Key:   []byte(notification.OrderID),
		Value: payload,
		Time:  notification.Timestamp,
	}, nil
}

// Publish writes the notification synchronously
func (p *KafkaPublisher) Publish(ctx context.Context, notification models.OrderStatusNotification) error {
	msg, err := message(notification)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification for order %s: %w", notification.OrderID, err)
	}

	metrics.NotificationsTotal.WithLabelValues(notification.Status).Inc()
	log.WithFields(log.Fields{
		"order_id": notification.OrderID,
		"status":   notification.Status,
	}).Info("Notification published")

	return nil
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
