package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ashendes/order-fulfillment/internal/models"
	"github.com/ashendes/order-fulfillment/internal/patterns"
	"github.com/go-resty/resty/v2"
)

// HTTPInventoryClient invokes the inventory service over HTTP. The
// circuit breaker and bulkhead isolate the workflow from a misbehaving
// inventory service; retries stay with the workflow's retry policy, so the
// client itself never retries.
type HTTPInventoryClient struct {
	client   *resty.Client
	circuit  *patterns.CircuitBreakerWrapper
	bulkhead *patterns.Bulkhead
	baseURL  string
}

// NewHTTPInventoryClient creates a client against the given base URL
func NewHTTPInventoryClient(baseURL, service string) *HTTPInventoryClient {
	return &HTTPInventoryClient{
		client: resty.New().
			SetTimeout(patterns.DefaultTimeout).
			SetRetryCount(0), // retries are owned by the workflow retry policy
		circuit:  patterns.NewCircuitBreaker("Inventory", service),
		bulkhead: patterns.NewBulkhead(10, "inventory", service),
		baseURL:  baseURL,
	}
}

// Search invokes the remote search operation
func (c *HTTPInventoryClient) Search(ctx context.Context, req models.InventorySearchRequest) (models.InventorySearchResult, error) {
	var result models.InventorySearchResult
	err := c.post(ctx, "/inventory/search", req, &result)
	return result, err
}

// Update invokes the remote update operation
func (c *HTTPInventoryClient) Update(ctx context.Context, req models.UpdateInventoryRequest) (models.UpdateInventoryResult, error) {
	var result models.UpdateInventoryResult
	err := c.post(ctx, "/inventory/update", req, &result)
	return result, err
}

func (c *HTTPInventoryClient) post(ctx context.Context, path string, body, out any) error {
	var rejection error

	err := c.bulkhead.Execute(func() error {
		_, cbErr := c.circuit.Execute(func() (interface{}, error) {
			resp, httpErr := c.client.R().
				SetContext(ctx).
				SetHeader("Content-Type", "application/json").
				SetBody(body).
				Post(c.baseURL + path)

			if httpErr != nil {
				return nil, fmt.Errorf("HTTP error: %w", httpErr)
			}

			if resp.StatusCode() == http.StatusBadRequest {
				// validation rejections are permanent: surfaced outside the
				// breaker so they neither trip it nor get retried
				rejection = fmt.Errorf("%w: inventory service rejected request: %s", patterns.ErrPermanent, resp.String())
				return nil, nil
			}
			if resp.StatusCode() != http.StatusOK {
				return nil, fmt.Errorf("inventory service returned status %d: %s", resp.StatusCode(), resp.String())
			}

			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return nil, fmt.Errorf("failed to parse response: %w", err)
			}

			return nil, nil
		})

		return patterns.FormatError("Inventory", cbErr)
	})
	if err != nil {
		return err
	}
	return rejection
}
