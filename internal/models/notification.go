package models

import "time"

// OrderStatusNotification is the externally observable status event
// published on every workflow status transition. Timestamp is the publish
// time, not the business-event time.
type OrderStatusNotification struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
