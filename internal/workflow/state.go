package workflow

import (
	"encoding/json"
	"time"

	"github.com/ashendes/order-fulfillment/internal/models"
)

// State is the current position of a fulfillment workflow instance
type State string

// Workflow states. Confirmed, Backordered and Failed are terminal: an
// instance never transitions again once it reaches one of them.
const (
	StateStarted     State = "started"
	StateSearching   State = "searching"
	StateReserving   State = "reserving"
	StateConfirmed   State = "confirmed"
	StateBackordered State = "backordered"
	StateFailed      State = "failed"
)

// Terminal reports whether the state ends the workflow
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateBackordered, StateFailed:
		return true
	}
	return false
}

// Activity names recorded in history
const (
	ActivitySearch  = "inventory.search"
	ActivityUpdate  = "inventory.update"
	ActivityPublish = "notification.publish"
)

// HistoryEvent records one completed activity. The ordered event log is the
// single source of truth for resuming an instance: replaying it yields the
// same state without re-invoking recorded activities.
type HistoryEvent struct {
	Seq        int             `json:"seq"`
	Activity   string          `json:"activity"`
	Detail     string          `json:"detail,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Instance is the durable saga for one order. OrderID is the identity and
// dedup key; exactly one active instance may exist per order.
type Instance struct {
	OrderID     string         `json:"order_id"`
	Order       models.Order   `json:"order"`
	State       State          `json:"state"`
	Message     string         `json:"message,omitempty"`
	History     []HistoryEvent `json:"history,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at,omitempty"`
}

// NewInstance creates a started instance for the given order
func NewInstance(order models.Order) *Instance {
	return &Instance{
		OrderID:   order.ID,
		Order:     order,
		State:     StateStarted,
		StartedAt: time.Now(),
	}
}
