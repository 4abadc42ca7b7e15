package storage

import (
	"context"
	"sync"
	"time"

	"github.com/ashendes/order-fulfillment/internal/inventory"
	"github.com/ashendes/order-fulfillment/internal/models"
)

// MemoryProductStore keeps stock records in process memory. Mutations are
// serialized under one lock, which satisfies the per-product serialization
// the all-or-nothing reserve check requires.
type MemoryProductStore struct {
	mutex     sync.RWMutex
	products  map[string]models.Product
	committed map[string]models.UpdateInventoryResult
}

// NewMemoryProductStore creates an empty in-memory store
func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{
		products:  make(map[string]models.Product),
		committed: make(map[string]models.UpdateInventoryResult),
	}
}

// Get returns the current record for a product
func (m *MemoryProductStore) Get(ctx context.Context, productID string) (models.Product, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	product, found := m.products[productID]
	return product, found, nil
}

// ApplyAndRecord implements inventory.ProductStore. All deltas commit or
// none do; a key that already committed replays its recorded result.
func (m *MemoryProductStore) ApplyAndRecord(ctx context.Context, key string, deltas []inventory.StockDelta, now time.Time) (models.UpdateInventoryResult, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if prior, found := m.committed[key]; found {
		return prior, nil
	}

	// Check every line before touching any record
	next := make(map[string]models.Product, len(deltas))
	for _, delta := range deltas {
		product, found := next[delta.ProductID]
		if !found {
			product, found = m.products[delta.ProductID]
		}
		if !found {
			product = models.Product{ProductID: delta.ProductID}
		}
		product.Quantity += delta.Delta
		if product.Quantity < 0 {
			return models.UpdateInventoryResult{Success: false, UpdatedAt: now}, nil
		}
		product.LastUpdated = monotonic(product.LastUpdated, now)
		next[delta.ProductID] = product
	}

	for id, product := range next {
		m.products[id] = product
	}

	result := models.UpdateInventoryResult{Success: true, UpdatedAt: now}
	m.committed[key] = result
	return result, nil
}

// monotonic keeps LastUpdated strictly advancing per product even when the
// wall clock has not moved between mutations.
func monotonic(last, now time.Time) time.Time {
	if now.After(last) {
		return now
	}
	return last.Add(time.Nanosecond)
}
