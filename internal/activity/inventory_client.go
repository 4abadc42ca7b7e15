package activity

import (
	"context"

	"github.com/ashendes/order-fulfillment/internal/inventory"
	"github.com/ashendes/order-fulfillment/internal/models"
)

// InventoryClient is the activity boundary to the inventory service: two
// named operations invoked by the workflow. Implementations differ only in
// transport addressing, never in the data contract.
type InventoryClient interface {
	Search(ctx context.Context, req models.InventorySearchRequest) (models.InventorySearchResult, error)
	Update(ctx context.Context, req models.UpdateInventoryRequest) (models.UpdateInventoryResult, error)
}

// LocalInventoryClient invokes an in-process inventory service directly
type LocalInventoryClient struct {
	service *inventory.Service
}

// NewLocalInventoryClient wraps an in-process service
func NewLocalInventoryClient(service *inventory.Service) *LocalInventoryClient {
	return &LocalInventoryClient{service: service}
}

// Search calls the in-process search operation
func (c *LocalInventoryClient) Search(ctx context.Context, req models.InventorySearchRequest) (models.InventorySearchResult, error) {
	return c.service.Search(ctx, req)
}

// Update calls the in-process update operation
func (c *LocalInventoryClient) Update(ctx context.Context, req models.UpdateInventoryRequest) (models.UpdateInventoryResult, error) {
	return c.service.Update(ctx, req)
}
