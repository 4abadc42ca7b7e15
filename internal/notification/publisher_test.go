package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ashendes/order-fulfillment/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublisher_CapturesInOrder(t *testing.T) {
	publisher := NewMemoryPublisher()

	require.NoError(t, publisher.Publish(context.Background(), models.OrderStatusNotification{
		OrderID: "order-1", Status: models.OrderStatusConfirmed,
	}))
	require.NoError(t, publisher.Publish(context.Background(), models.OrderStatusNotification{
		OrderID: "order-2", Status: models.OrderStatusBackordered,
	}))

	published := publisher.Published()
	require.Len(t, published, 2)
	assert.Equal(t, "order-1", published[0].OrderID)
	assert.Equal(t, models.OrderStatusBackordered, published[1].Status)
}

func TestMemoryPublisher_PublishedReturnsCopy(t *testing.T) {
	publisher := NewMemoryPublisher()
	require.NoError(t, publisher.Publish(context.Background(), models.OrderStatusNotification{
		OrderID: "order-1", Status: models.OrderStatusConfirmed,
	}))

	published := publisher.Published()
	published[0].OrderID = "altered"

	assert.Equal(t, "order-1", publisher.Published()[0].OrderID)
}

func TestMemoryPublisher_ToleratesDuplicates(t *testing.T) {
	// delivery is at-least-once: a redelivered notification is recorded again
	publisher := NewMemoryPublisher()
	n := models.OrderStatusNotification{OrderID: "order-1", Status: models.OrderStatusFailed}

	require.NoError(t, publisher.Publish(context.Background(), n))
	require.NoError(t, publisher.Publish(context.Background(), n))

	assert.Len(t, publisher.Published(), 2)
}

func TestKafkaMessage_KeyedByOrderID(t *testing.T) {
	sent := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	msg, err := message(models.OrderStatusNotification{
		OrderID:   "order-1",
		Status:    models.OrderStatusConfirmed,
		Message:   "order confirmed",
		Timestamp: sent,
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("order-1"), msg.Key)
	assert.Equal(t, sent, msg.Time)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "order-1", decoded["order_id"])
	assert.Equal(t, "confirmed", decoded["status"])
	assert.Equal(t, "order confirmed", decoded["message"])
	assert.Contains(t, decoded, "timestamp")
}

func TestKafkaMessage_OmitsEmptyMessage(t *testing.T) {
	msg, err := message(models.OrderStatusNotification{
		OrderID: "order-2",
		Status:  models.OrderStatusBackordered,
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.NotContains(t, decoded, "message")
}
