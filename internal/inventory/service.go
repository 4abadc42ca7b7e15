package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ashendes/order-fulfillment/internal/metrics"
	"github.com/ashendes/order-fulfillment/internal/models"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrValidation marks a malformed request: rejected immediately,
	// no retry, no mutation.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidOperation marks an unknown operation string
	ErrInvalidOperation = fmt.Errorf("%w: invalid operation", ErrValidation)
)

// StockDelta is a signed quantity change for one product
type StockDelta struct {
	ProductID string
	Delta     int
}

// ProductStore is the persistence port for canonical stock records.
//
// ApplyAndRecord applies every delta atomically as a single unit and records
// the committed result under key. When key has already been committed, the
// prior result is returned without re-mutating. When any resulting quantity
// would go negative, nothing is applied and the result carries Success=false.
// A positive delta against an unknown product creates its record.
type ProductStore interface {
	Get(ctx context.Context, productID string) (models.Product, bool, error)
	ApplyAndRecord(ctx context.Context, key string, deltas []StockDelta, now time.Time) (models.UpdateInventoryResult, error)
}

// Service owns per-product stock state and enforces the idempotency and
// non-negative-quantity invariants.
type Service struct {
	store ProductStore
}

// NewService creates an inventory service over the given store
func NewService(store ProductStore) *Service {
	return &Service{store: store}
}

// Search looks up current stock for each requested item. Pure read: unknown
// products report zero availability and never fail the request.
func (s *Service) Search(ctx context.Context, req models.InventorySearchRequest) (models.InventorySearchResult, error) {
	if err := validate(req.OrderID, req.Items); err != nil {
		return models.InventorySearchResult{}, err
	}

	statuses := make([]models.ItemStatus, 0, len(req.Items))
	for _, item := range req.Items {
		product, found, err := s.store.Get(ctx, item.ProductID)
		available := 0
		if err != nil {
			return models.InventorySearchResult{}, fmt.Errorf("lookup product %s: %w", item.ProductID, err)
		}
		if found {
			available = product.Quantity
		}
		statuses = append(statuses, models.ItemStatus{
			ProductID:         item.ProductID,
			RequestedQuantity: item.RequestedQuantity,
			AvailableQuantity: available,
		})
	}

	return models.InventorySearchResult{Statuses: statuses}, nil
}

// Update applies the requested operation to every item atomically,
// all-or-nothing across the item list. Idempotent per order, operation and
// item set: a retried request that already committed returns the prior
// result without re-mutating.
func (s *Service) Update(ctx context.Context, req models.UpdateInventoryRequest) (models.UpdateInventoryResult, error) {
	if err := validate(req.OrderID, req.Items); err != nil {
		return models.UpdateInventoryResult{}, err
	}

	var deltas []StockDelta

	switch req.Operation {
	case models.OperationReserve:
		for _, item := range req.Items {
			deltas = append(deltas, StockDelta{ProductID: item.ProductID, Delta: -item.RequestedQuantity})
		}
	case models.OperationRelease:
		for _, item := range req.Items {
			deltas = append(deltas, StockDelta{ProductID: item.ProductID, Delta: item.RequestedQuantity})
		}
	case models.OperationRestock:
		for _, item := range req.Items {
			deltas = append(deltas, StockDelta{ProductID: item.ProductID, Delta: item.RequestedQuantity})
		}
	default:
		return models.UpdateInventoryResult{}, fmt.Errorf("%w: %q", ErrInvalidOperation, req.Operation)
	}

	result, err := s.store.ApplyAndRecord(ctx, dedupKey(req), deltas, time.Now())
	if err != nil {
		return models.UpdateInventoryResult{}, fmt.Errorf("apply %s for order %s: %w", req.Operation, req.OrderID, err)
	}

	if result.Success {
		s.refreshLevels(ctx, req.Items)
	}

	log.WithFields(log.Fields{
		"order_id":  req.OrderID,
		"operation": req.Operation,
		"items":     len(req.Items),
		"success":   result.Success,
	}).Info("Inventory update applied")

	return result, nil
}

// dedupKey fingerprints an update request by order, operation and item set.
// Item order does not change the key.
func dedupKey(req models.UpdateInventoryRequest) string {
	parts := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		parts = append(parts, fmt.Sprintf("%s=%d", item.ProductID, item.RequestedQuantity))
	}
	sort.Strings(parts)
	return req.OrderID + "|" + req.Operation + "|" + strings.Join(parts, ",")
}

func (s *Service) refreshLevels(ctx context.Context, items []models.ItemStatus) {
	for _, item := range items {
		product, found, err := s.store.Get(ctx, item.ProductID)
		if err != nil || !found {
			continue
		}
		metrics.InventoryLevel.WithLabelValues(product.ProductID).Set(float64(product.Quantity))
	}
}

func validate(orderID string, items []models.ItemStatus) error {
	if orderID == "" {
		return fmt.Errorf("%w: order_id is required", ErrValidation)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for i, item := range items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item %d: product_id is required", ErrValidation, i)
		}
		if item.RequestedQuantity < 0 {
			return fmt.Errorf("%w: item %d: requested quantity must not be negative", ErrValidation, i)
		}
	}
	return nil
}
