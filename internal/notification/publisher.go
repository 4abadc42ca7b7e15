package notification

import (
	"context"
	"sync"

	"github.com/ashendes/order-fulfillment/internal/models"
)

// Publisher delivers order status notifications to interested parties.
// Delivery is at-least-once; subscribers must tolerate duplicates and no
// ordering is guaranteed across distinct orders.
type Publisher interface {
	Publish(ctx context.Context, notification models.OrderStatusNotification) error
}

// MemoryPublisher collects notifications in memory. Used in tests and as
// the no-bus fallback when no brokers are configured.
type MemoryPublisher struct {
	mutex     sync.Mutex
	published []models.OrderStatusNotification
}

// NewMemoryPublisher creates an empty in-memory publisher
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the notification
func (m *MemoryPublisher) Publish(ctx context.Context, notification models.OrderStatusNotification) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.published = append(m.published, notification)
	return nil
}

// Published returns a copy of everything published so far
func (m *MemoryPublisher) Published() []models.OrderStatusNotification {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := make([]models.OrderStatusNotification, len(m.published))
	copy(out, m.published)
	return out
}
