package patterns

import (
	"context"
	"time"
)

// WithTimeout creates a context with timeout for fail-fast behavior
func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

// DefaultTimeout is the default timeout for a single activity call
const DefaultTimeout = 3 * time.Second

// WorkflowDeadline bounds the total duration of one workflow run; an
// instance past this deadline fails closed rather than staying non-terminal.
const WorkflowDeadline = 60 * time.Second
