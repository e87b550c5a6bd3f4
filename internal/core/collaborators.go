// Package core declares the ports of the bulk validation orchestrator.
package core

import (
	"context"
	"encoding/json"

	"github.com/target/mmk-bulkval/internal/domain/model"
)

// ValidateRequest describes one validator run.
type ValidateRequest struct {
	FilePath string
	// Targets maps application guid to the versions to check compatibility against.
	Targets map[string][]string
	// Overrides maps application guid to the max version the validator should
	// assume (the targetapp_maxVersion override).
	Overrides  map[string]string
	Exhaustive bool
}

// Validator inspects a file and returns a structured report.
type Validator interface {
	Validate(ctx context.Context, req ValidateRequest) (*model.ValidationReport, error)
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg model.Message) error
}

// PreviewMailer captures rendered email under a topic instead of delivering it.
type PreviewMailer interface {
	PreviewSend(ctx context.Context, topic string, msg model.Message) error
}

// AuditLogger records audited catalog changes.
type AuditLogger interface {
	Record(ctx context.Context, entry model.AuditEntry) error
}

// RateLimiter blocks until the caller may proceed.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// EnqueueOptions tune a single enqueue.
type EnqueueOptions struct {
	Priority   int
	DedupeKey  string
	MaxRetries int
}

// TaskEnqueuer schedules background work.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, taskType model.TaskType, payload any, opts EnqueueOptions) (*model.Task, error)
}

// TaskHandler executes the payload of one reserved task. A retryable attempt result
// fails the task with the trace even when err is nil.
type TaskHandler interface {
	Handle(ctx context.Context, task *model.Task) (model.AttemptResult, error)
}

// TaskHandlerFunc adapts a function to TaskHandler.
type TaskHandlerFunc func(ctx context.Context, task *model.Task) (model.AttemptResult, error)

// Handle calls f.
func (f TaskHandlerFunc) Handle(ctx context.Context, task *model.Task) (model.AttemptResult, error) {
	return f(ctx, task)
}

// DecodePayload unmarshals a task payload and validates it.
func DecodePayload[T any](task *model.Task) (*T, error) {
	var p T
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return nil, err
	}
	if err := model.ValidateStruct(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
