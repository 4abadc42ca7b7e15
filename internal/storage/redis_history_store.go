package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ashendes/order-fulfillment/internal/workflow"
	"github.com/redis/go-redis/v9"
)

const (
	instanceKeyPrefix = "wf:instance:"
	historyKeyPrefix  = "wf:history:"
)

// RedisHistoryStore persists workflow instances in Redis: the instance
// record as a JSON string and the history as an append-only list. History
// survives process restarts, which is what makes interrupted instances
// resumable.
type RedisHistoryStore struct {
	client *redis.Client
}

// NewRedisHistoryStore creates a store over the given client
func NewRedisHistoryStore(client *redis.Client) *RedisHistoryStore {
	return &RedisHistoryStore{client: client}
}

// CreateInstance claims the orderID with SETNX
func (r *RedisHistoryStore) CreateInstance(ctx context.Context, inst *workflow.Instance) error {
	payload, err := marshalInstance(inst)
	if err != nil {
		return err
	}

	created, err := r.client.SetNX(ctx, instanceKeyPrefix+inst.OrderID, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	if !created {
		return workflow.ErrInstanceConflict
	}
	return nil
}

// GetInstance loads the instance record and its history list
func (r *RedisHistoryStore) GetInstance(ctx context.Context, orderID string) (*workflow.Instance, bool, error) {
	payload, err := r.client.Get(ctx, instanceKeyPrefix+orderID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load instance: %w", err)
	}

	var inst workflow.Instance
	if err := json.Unmarshal(payload, &inst); err != nil {
		return nil, false, fmt.Errorf("decode instance: %w", err)
	}

	entries, err := r.client.LRange(ctx, historyKeyPrefix+orderID, 0, -1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("load history: %w", err)
	}
	for _, entry := range entries {
		var event workflow.HistoryEvent
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			return nil, false, fmt.Errorf("decode history event: %w", err)
		}
		inst.History = append(inst.History, event)
	}

	return &inst, true, nil
}

// AppendEvent pushes one event onto the instance's history list
func (r *RedisHistoryStore) AppendEvent(ctx context.Context, orderID string, event workflow.HistoryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode history event: %w", err)
	}
	if err := r.client.RPush(ctx, historyKeyPrefix+orderID, payload).Err(); err != nil {
		return fmt.Errorf("append history event: %w", err)
	}
	return nil
}

// SetState rewrites the instance record. The engine is the single writer
// per instance, so a plain SET is safe here.
func (r *RedisHistoryStore) SetState(ctx context.Context, inst *workflow.Instance) error {
	payload, err := marshalInstance(inst)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, instanceKeyPrefix+inst.OrderID, payload, 0).Err(); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// marshalInstance strips history, which lives in its own list
func marshalInstance(inst *workflow.Instance) ([]byte, error) {
	record := *inst
	record.History = nil
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode instance: %w", err)
	}
	return payload, nil
}
