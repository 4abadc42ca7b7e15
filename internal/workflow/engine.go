package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ashendes/order-fulfillment/internal/activity"
	"github.com/ashendes/order-fulfillment/internal/metrics"
	"github.com/ashendes/order-fulfillment/internal/models"
	"github.com/ashendes/order-fulfillment/internal/notification"
	"github.com/ashendes/order-fulfillment/internal/patterns"
	log "github.com/sirupsen/logrus"
)

// Engine orchestrates order fulfillment as a durable saga. Each order drives
// one instance; instances for different orders run fully concurrently and
// share no mutable state except through the inventory service. Every activity
// result is appended to the instance's history log before the workflow moves
// on, so an interrupted instance resumes by replay instead of re-execution.
type Engine struct {
	store     HistoryStore
	inventory activity.InventoryClient
	publisher notification.Publisher
	policy    patterns.RetryPolicy
	deadline  time.Duration

	mutex  sync.Mutex
	active map[string]struct{}
}

// NewEngine creates an engine with the default retry policy and workflow
// deadline.
func NewEngine(store HistoryStore, inventory activity.InventoryClient, publisher notification.Publisher) *Engine {
	return &Engine{
		store:     store,
		inventory: inventory,
		publisher: publisher,
		policy:    patterns.DefaultRetryPolicy(),
		deadline:  patterns.WorkflowDeadline,
		active:    make(map[string]struct{}),
	}
}

// SetRetryPolicy overrides the activity retry policy
func (e *Engine) SetRetryPolicy(policy patterns.RetryPolicy) {
	e.policy = policy
}

// SetDeadline overrides the maximum total duration of one workflow run
func (e *Engine) SetDeadline(deadline time.Duration) {
	e.deadline = deadline
}

// Fulfill runs the fulfillment workflow for an order to a terminal state.
// A duplicate start for an order whose instance is currently executing is
// rejected with ErrInstanceConflict; an order whose instance already
// completed returns the recorded outcome; an interrupted instance is
// resumed from its history log.
func (e *Engine) Fulfill(ctx context.Context, order models.Order) (*Instance, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}

	if !e.claim(order.ID) {
		return nil, fmt.Errorf("%w: %s", ErrInstanceConflict, order.ID)
	}
	defer e.release(order.ID)

	inst, found, err := e.store.GetInstance(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load instance %s: %w", order.ID, err)
	}
	if found && inst.State.Terminal() {
		// completed instances are immutable: reuse the recorded outcome
		return inst, nil
	}
	if !found {
		inst = NewInstance(order)
		if err := e.store.CreateInstance(ctx, inst); err != nil {
			return nil, fmt.Errorf("create instance %s: %w", order.ID, err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	e.run(runCtx, inst)
	return inst, nil
}

// run executes the state machine to a terminal state. It never leaves the
// instance non-terminal: exhausted retries and expired deadlines fail closed.
func (e *Engine) run(ctx context.Context, inst *Instance) {
	cursor := newReplayCursor(inst.History)
	logger := log.WithFields(log.Fields{"order_id": inst.OrderID})

	e.setState(ctx, inst, StateSearching, "")

	var search models.InventorySearchResult
	err := e.executeActivity(ctx, inst, cursor, ActivitySearch, "", &search, func(ctx context.Context) (any, error) {
		return e.inventory.Search(ctx, models.InventorySearchRequest{
			OrderID: inst.OrderID,
			Items:   inst.Order.ItemStatuses(),
		})
	})
	if err != nil {
		logger.Error("Inventory search failed: ", err)
		e.fail(inst, cursor, "inventory search failed", false)
		return
	}

	if !search.AllAvailable() {
		// nothing was reserved, so no compensation is needed
		message := shortageMessage(search)
		logger.WithField("message", message).Info("Order backordered")
		e.notify(ctx, inst, cursor, models.OrderStatusBackordered, message)
		e.complete(inst, StateBackordered, message)
		return
	}

	e.setState(ctx, inst, StateReserving, "")

	var reserve models.UpdateInventoryResult
	err = e.executeActivity(ctx, inst, cursor, ActivityUpdate, models.OperationReserve, &reserve, func(ctx context.Context) (any, error) {
		return e.inventory.Update(ctx, models.UpdateInventoryRequest{
			OrderID:   inst.OrderID,
			Items:     inst.Order.ItemStatuses(),
			Operation: models.OperationReserve,
		})
	})
	if err != nil {
		logger.Error("Inventory reserve failed: ", err)
		e.fail(inst, cursor, "inventory reserve failed", false)
		return
	}
	if !reserve.Success {
		// stock was consumed between search and reserve; the update's own
		// rejection is the final authority, not the search snapshot
		logger.Info("Reservation rejected, stock consumed since search")
		e.fail(inst, cursor, "insufficient stock at reservation time", false)
		return
	}

	if err := e.notifyErr(ctx, inst, cursor, models.OrderStatusConfirmed, "order confirmed"); err != nil {
		// the reservation committed but confirmation cannot be delivered:
		// release the stock, then fail closed
		logger.Error("Confirmation publish failed: ", err)
		e.fail(inst, cursor, "confirmation could not be published", true)
		return
	}

	logger.Info("Order confirmed")
	e.complete(inst, StateConfirmed, "order confirmed")
}

// fail drives the instance to the Failed terminal state, optionally
// releasing a committed reservation first. Terminal bookkeeping runs on a
// detached context so an expired workflow deadline cannot leave the
// instance in Reserving forever.
func (e *Engine) fail(inst *Instance, cursor *replayCursor, message string, releaseReserve bool) {
	ctx, cancel := patterns.WithTimeout(10 * time.Second)
	defer cancel()

	logger := log.WithFields(log.Fields{"order_id": inst.OrderID})

	if releaseReserve {
		var release models.UpdateInventoryResult
		err := e.executeActivity(ctx, inst, cursor, ActivityUpdate, models.OperationRelease, &release, func(ctx context.Context) (any, error) {
			return e.inventory.Update(ctx, models.UpdateInventoryRequest{
				OrderID:   inst.OrderID,
				Items:     inst.Order.ItemStatuses(),
				Operation: models.OperationRelease,
			})
		})
		if err != nil {
			logger.Error("Compensating release failed: ", err)
		}
	}

	e.notify(ctx, inst, cursor, models.OrderStatusFailed, message)
	e.complete(inst, StateFailed, message)
}

// notify publishes a status notification, logging instead of escalating
// when delivery keeps failing on an already-failing path.
func (e *Engine) notify(ctx context.Context, inst *Instance, cursor *replayCursor, status, message string) {
	if err := e.notifyErr(ctx, inst, cursor, status, message); err != nil {
		log.WithFields(log.Fields{
			"order_id": inst.OrderID,
			"status":   status,
		}).Error("Failed to publish notification: ", err)
	}
}

func (e *Engine) notifyErr(ctx context.Context, inst *Instance, cursor *replayCursor, status, message string) error {
	return e.executeActivity(ctx, inst, cursor, ActivityPublish, status, nil, func(ctx context.Context) (any, error) {
		err := e.publisher.Publish(ctx, models.OrderStatusNotification{
			OrderID:   inst.OrderID,
			Status:    status,
			Message:   message,
			Timestamp: time.Now(),
		})
		if err != nil {
			return nil, err
		}
		return true, nil
	})
}

// executeActivity is the only suspension point of the workflow. A recorded
// completion for this position is decoded from history and returned without
// re-invoking; otherwise the activity runs under the retry policy and its
// result is appended to the log before the workflow continues.
func (e *Engine) executeActivity(ctx context.Context, inst *Instance, cursor *replayCursor, name, detail string, out any, invoke func(context.Context) (any, error)) error {
	if event, ok := cursor.next(); ok {
		if event.Activity != name {
			return fmt.Errorf("%w: recorded %q at seq %d, expected %q", ErrHistoryDiverged, event.Activity, event.Seq, name)
		}
		metrics.ReplayedEvents.Inc()
		if out != nil && len(event.Payload) > 0 {
			if err := json.Unmarshal(event.Payload, out); err != nil {
				return fmt.Errorf("decode recorded %s result: %w", name, err)
			}
		}
		return nil
	}

	var result any
	err := patterns.Retry(ctx, name, e.policy, func(ctx context.Context) error {
		r, err := invoke(ctx)
		if err != nil {
			metrics.ActivityAttempts.WithLabelValues(name, "failure").Inc()
			return err
		}
		metrics.ActivityAttempts.WithLabelValues(name, "success").Inc()
		result = r
		return nil
	})
	if err != nil {
		return err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", name, err)
	}

	event := HistoryEvent{
		Seq:        cursor.seq(),
		Activity:   name,
		Detail:     detail,
		Payload:    payload,
		RecordedAt: time.Now(),
	}
	if err := e.store.AppendEvent(ctx, inst.OrderID, event); err != nil {
		return fmt.Errorf("record %s completion: %w", name, err)
	}
	inst.History = append(inst.History, event)
	cursor.advance()

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode %s result: %w", name, err)
		}
	}
	return nil
}

func (e *Engine) setState(ctx context.Context, inst *Instance, state State, message string) {
	inst.State = state
	inst.Message = message
	if err := e.store.SetState(ctx, inst); err != nil {
		log.WithField("order_id", inst.OrderID).Warn("Failed to persist state: ", err)
	}
}

// complete records the terminal state on a detached context
func (e *Engine) complete(inst *Instance, state State, message string) {
	ctx, cancel := patterns.WithTimeout(5 * time.Second)
	defer cancel()

	inst.CompletedAt = time.Now()
	e.setState(ctx, inst, state, message)
	metrics.WorkflowsTotal.WithLabelValues(string(state)).Inc()

	log.WithFields(log.Fields{
		"order_id": inst.OrderID,
		"state":    state,
	}).Info("Workflow completed")
}

func (e *Engine) claim(orderID string) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if _, busy := e.active[orderID]; busy {
		return false
	}
	e.active[orderID] = struct{}{}
	return true
}

func (e *Engine) release(orderID string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.active, orderID)
}

func shortageMessage(result models.InventorySearchResult) string {
	for _, status := range result.Statuses {
		if status.AvailableQuantity < status.RequestedQuantity {
			return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
				status.ProductID, status.RequestedQuantity, status.AvailableQuantity)
		}
	}
	return "insufficient stock"
}

// validateOrder performs fail-fast validation before any instance is created
func validateOrder(order models.Order) error {
	if order.ID == "" {
		return fmt.Errorf("%w: order id is required", ErrValidation)
	}
	if len(order.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	}
	for i, item := range order.Items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: item %d: product_id is required", ErrValidation, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be greater than 0", ErrValidation, i)
		}
	}
	return nil
}
