package storage

import (
	"context"
	"testing"
	"time"

	"github.com/ashendes/order-fulfillment/internal/inventory"
	"github.com/ashendes/order-fulfillment/internal/models"
	"github.com/ashendes/order-fulfillment/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProductStore_AllOrNothing(t *testing.T) {
	store := NewMemoryProductStore()
	now := time.Now()

	_, err := store.ApplyAndRecord(context.Background(), "seed", []inventory.StockDelta{
		{ProductID: "a", Delta: 10},
		{ProductID: "b", Delta: 1},
	}, now)
	require.NoError(t, err)

	result, err := store.ApplyAndRecord(context.Background(), "reserve-1", []inventory.StockDelta{
		{ProductID: "a", Delta: -2},
		{ProductID: "b", Delta: -5},
	}, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, result.Success)

	productA, _, err := store.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 10, productA.Quantity, "rejected request must not partially apply")
}

func TestMemoryProductStore_LastUpdatedMonotonic(t *testing.T) {
	store := NewMemoryProductStore()
	now := time.Now()

	_, err := store.ApplyAndRecord(context.Background(), "k1", []inventory.StockDelta{{ProductID: "a", Delta: 5}}, now)
	require.NoError(t, err)
	first, _, err := store.Get(context.Background(), "a")
	require.NoError(t, err)

	// second mutation at the same wall-clock instant must still advance
	_, err = store.ApplyAndRecord(context.Background(), "k2", []inventory.StockDelta{{ProductID: "a", Delta: 1}}, now)
	require.NoError(t, err)
	second, _, err := store.Get(context.Background(), "a")
	require.NoError(t, err)

	assert.True(t, second.LastUpdated.After(first.LastUpdated))
}

func TestMemoryProductStore_CommittedKeyReplays(t *testing.T) {
	store := NewMemoryProductStore()
	now := time.Now()

	first, err := store.ApplyAndRecord(context.Background(), "k1", []inventory.StockDelta{{ProductID: "a", Delta: 5}}, now)
	require.NoError(t, err)
	require.True(t, first.Success)

	replayed, err := store.ApplyAndRecord(context.Background(), "k1", []inventory.StockDelta{{ProductID: "a", Delta: 5}}, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, replayed)

	product, _, err := store.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 5, product.Quantity)
}

func TestMemoryProductStore_RejectionIsNotCommitted(t *testing.T) {
	store := NewMemoryProductStore()
	now := time.Now()

	rejected, err := store.ApplyAndRecord(context.Background(), "k1", []inventory.StockDelta{{ProductID: "a", Delta: -1}}, now)
	require.NoError(t, err)
	require.False(t, rejected.Success)

	// stock appears, the same key may now commit
	_, err = store.ApplyAndRecord(context.Background(), "restock", []inventory.StockDelta{{ProductID: "a", Delta: 3}}, now)
	require.NoError(t, err)

	retried, err := store.ApplyAndRecord(context.Background(), "k1", []inventory.StockDelta{{ProductID: "a", Delta: -1}}, now)
	require.NoError(t, err)
	assert.True(t, retried.Success)
}

func TestMemoryHistoryStore_InstanceLifecycle(t *testing.T) {
	store := NewMemoryHistoryStore()
	ctx := context.Background()

	inst := workflow.NewInstance(models.Order{
		ID:    "order-1",
		Items: []models.OrderItem{{ProductID: "a", Quantity: 1}},
	})
	require.NoError(t, store.CreateInstance(ctx, inst))

	err := store.CreateInstance(ctx, inst)
	assert.ErrorIs(t, err, workflow.ErrInstanceConflict)

	require.NoError(t, store.AppendEvent(ctx, "order-1", workflow.HistoryEvent{
		Seq:      1,
		Activity: workflow.ActivitySearch,
	}))

	inst.State = workflow.StateConfirmed
	inst.CompletedAt = time.Now()
	require.NoError(t, store.SetState(ctx, inst))

	loaded, found, err := store.GetInstance(ctx, "order-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, workflow.StateConfirmed, loaded.State)
	require.Len(t, loaded.History, 1)
	assert.Equal(t, workflow.ActivitySearch, loaded.History[0].Activity)
}
