// Package notify defines the payload and sink contract for task failure alerts.
package notify

import (
	"context"
	"time"
)

// SeverityCritical is the default severity of a failure alert.
const SeverityCritical = "critical"

// TaskFailurePayload describes a queue task that exhausted its retries.
type TaskFailurePayload struct {
	TaskID     string
	TaskType   string
	JobID      int64 // validation job the task belongs to, 0 when unknown
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink consumes failure alerts.
type Sink interface {
	SendTaskFailure(ctx context.Context, payload TaskFailurePayload) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, payload TaskFailurePayload) error

// SendTaskFailure calls f.
func (f SinkFunc) SendTaskFailure(ctx context.Context, payload TaskFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
