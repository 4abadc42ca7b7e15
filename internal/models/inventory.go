package models

import "time"

// ItemStatus represents one line item's stock state as seen by a request.
// AvailableQuantity is authoritative only after a Search.
type ItemStatus struct {
	ProductID         string `json:"product_id" binding:"required"`
	RequestedQuantity int    `json:"requested_quantity"`
	AvailableQuantity int    `json:"available_quantity"`
}

// Product is the canonical stock record, owned exclusively by the
// inventory service. Quantity never goes negative; LastUpdated advances
// on every mutation.
type Product struct {
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	LastUpdated time.Time `json:"last_updated"`
}

// InventorySearchRequest queries availability for an order's items
type InventorySearchRequest struct {
	OrderID string       `json:"order_id" binding:"required"`
	Items   []ItemStatus `json:"items" binding:"required,dive"`
}

// InventorySearchResult is an availability snapshot, one per search call
type InventorySearchResult struct {
	Statuses []ItemStatus `json:"statuses"`
}

// OutOfStockItems returns the subset of statuses with no stock at all.
// Always recomputed from Statuses, never stored.
func (r InventorySearchResult) OutOfStockItems() []ItemStatus {
	var out []ItemStatus
	for _, status := range r.Statuses {
		if status.AvailableQuantity <= 0 {
			out = append(out, status)
		}
	}
	return out
}

// AllAvailable reports whether every item can be fulfilled from current stock
func (r InventorySearchResult) AllAvailable() bool {
	for _, status := range r.Statuses {
		if status.AvailableQuantity < status.RequestedQuantity {
			return false
		}
	}
	return true
}

// Inventory operation constants
const (
	OperationReserve = "reserve"
	OperationRelease = "release"
	OperationRestock = "restock"
)

// UpdateInventoryRequest is a one-shot mutation intent. Operation must be
// one of reserve, release or restock.
type UpdateInventoryRequest struct {
	OrderID   string       `json:"order_id" binding:"required"`
	Items     []ItemStatus `json:"items" binding:"required,dive"`
	Operation string       `json:"operation" binding:"required"`
}

// UpdateInventoryResult reports the outcome of a mutation.
// Success=false guarantees no product state was mutated.
type UpdateInventoryResult struct {
	Success   bool      `json:"success"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckInventoryResponse represents a single-product availability check
type CheckInventoryResponse struct {
	Available bool   `json:"available"`
	Quantity  int    `json:"quantity"`
	Message   string `json:"message,omitempty"`
}
