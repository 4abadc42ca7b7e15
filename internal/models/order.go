package models

import "time"

// OrderItem represents a requested line item in an order
type OrderItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// Order represents a customer order driving one fulfillment workflow
type Order struct {
	ID        string      `json:"id"`
	Items     []OrderItem `json:"items" binding:"required,dive"`
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderStatus constants
const (
	OrderStatusPending     = "pending"
	OrderStatusConfirmed   = "confirmed"
	OrderStatusBackordered = "backordered"
	OrderStatusFailed      = "failed"
)

// FulfillOrderRequest represents the request to start fulfillment of an order
type FulfillOrderRequest struct {
	OrderID string      `json:"order_id"`
	Items   []OrderItem `json:"items" binding:"required,dive"`
}

// FulfillOrderResponse represents the outcome reported to the caller
type FulfillOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ItemStatuses converts the order's line items into the inventory
// request shape with quantities carried as requested amounts.
func (o Order) ItemStatuses() []ItemStatus {
	statuses := make([]ItemStatus, 0, len(o.Items))
	for _, item := range o.Items {
		statuses = append(statuses, ItemStatus{
			ProductID:         item.ProductID,
			RequestedQuantity: item.Quantity,
		})
	}
	return statuses
}
