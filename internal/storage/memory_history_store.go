package storage

import (
	"context"
	"sync"

	"github.com/ashendes/order-fulfillment/internal/workflow"
)

// MemoryHistoryStore keeps workflow instances and history logs in process
// memory. Suitable for tests and single-process local runs.
type MemoryHistoryStore struct {
	mutex     sync.RWMutex
	instances map[string]*workflow.Instance
}

// NewMemoryHistoryStore creates an empty store
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{instances: make(map[string]*workflow.Instance)}
}

// CreateInstance claims the orderID
func (m *MemoryHistoryStore) CreateInstance(ctx context.Context, inst *workflow.Instance) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.instances[inst.OrderID]; exists {
		return workflow.ErrInstanceConflict
	}
	stored := *inst
	m.instances[inst.OrderID] = &stored
	return nil
}

// GetInstance returns a copy of the instance with its full history
func (m *MemoryHistoryStore) GetInstance(ctx context.Context, orderID string) (*workflow.Instance, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stored, found := m.instances[orderID]
	if !found {
		return nil, false, nil
	}
	inst := *stored
	inst.History = make([]workflow.HistoryEvent, len(stored.History))
	copy(inst.History, stored.History)
	return &inst, true, nil
}

// AppendEvent appends one history event
func (m *MemoryHistoryStore) AppendEvent(ctx context.Context, orderID string, event workflow.HistoryEvent) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stored, found := m.instances[orderID]
	if !found {
		return workflow.ErrValidation
	}
	stored.History = append(stored.History, event)
	return nil
}

// SetState records current state, message and completion time
func (m *MemoryHistoryStore) SetState(ctx context.Context, inst *workflow.Instance) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stored, found := m.instances[inst.OrderID]
	if !found {
		return workflow.ErrValidation
	}
	stored.State = inst.State
	stored.Message = inst.Message
	stored.CompletedAt = inst.CompletedAt
	return nil
}
