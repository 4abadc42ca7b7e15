package workflow

import (
	"context"
	"errors"
)

var (
	// ErrValidation marks a malformed trigger: rejected before any
	// instance is created.
	ErrValidation = errors.New("validation failed")

	// ErrInstanceConflict marks a duplicate start for an orderID whose
	// instance is still active.
	ErrInstanceConflict = errors.New("workflow instance already active for order")

	// ErrHistoryDiverged marks recorded history that does not match the
	// activity the workflow is about to run. It means the log was written
	// by a different workflow definition and cannot be replayed safely.
	ErrHistoryDiverged = errors.New("recorded history diverged from workflow definition")
)

// HistoryStore persists workflow instances and their append-only history
// logs. Instances and history are retained after completion for audit.
type HistoryStore interface {
	// CreateInstance claims the orderID; returns ErrInstanceConflict when
	// an instance already exists.
	CreateInstance(ctx context.Context, inst *Instance) error

	// GetInstance loads an instance with its full history
	GetInstance(ctx context.Context, orderID string) (*Instance, bool, error)

	// AppendEvent durably appends one history event for the instance
	AppendEvent(ctx context.Context, orderID string, event HistoryEvent) error

	// SetState records the instance's current state and message
	SetState(ctx context.Context, inst *Instance) error
}
