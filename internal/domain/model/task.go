// Package model defines the data types shared by the bulk validation orchestrator.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskType names a unit of queued work.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type TaskType string

// TaskStatus represents the current status of a queued task.
type TaskStatus string

const (
	// TaskTypeExpand selects the files of a batch of add-ons and seeds their results.
	TaskTypeExpand TaskType = "expand"
	// TaskTypeValidateFile runs the validator against a single result's file.
	TaskTypeValidateFile TaskType = "validate_file"
	// TaskTypeNotifySuccess bumps compatibility and emails authors of passing versions.
	TaskTypeNotifySuccess TaskType = "notify_success"
	// TaskTypeNotifyFailed emails authors of files that failed validation.
	TaskTypeNotifyFailed TaskType = "notify_failed"

	// TaskStatusPending indicates a task is waiting to be processed.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates a task is leased by a worker.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates a task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates a task exhausted its retries.
	TaskStatusFailed TaskStatus = "failed"
)

// ErrNoTasksAvailable is returned when no tasks are available for reservation.
var ErrNoTasksAvailable = errors.New("no tasks available")

// AllTaskTypes lists every task type the runner knows how to execute.
func AllTaskTypes() []TaskType {
	return []TaskType{TaskTypeExpand, TaskTypeValidateFile, TaskTypeNotifySuccess, TaskTypeNotifyFailed}
}

// UnmarshalText implements encoding.TextUnmarshaler so task types can be parsed from env.
func (t *TaskType) UnmarshalText(text []byte) error {
	v := TaskType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid TaskType: %q", v)
	}
	*t = v
	return nil
}

// Valid returns true if the TaskType is known.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeExpand, TaskTypeValidateFile, TaskTypeNotifySuccess, TaskTypeNotifyFailed:
		return true
	default:
		return false
	}
}

// Valid returns true if the TaskStatus is known.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusPending || s == TaskStatusRunning || s == TaskStatusCompleted ||
		s == TaskStatusFailed
}

// Task is a row of the durable task queue.
type Task struct {
	ID             string          `json:"id"                         db:"id"`
	Type           TaskType        `json:"type"                       db:"type"`
	Status         TaskStatus      `json:"status"                     db:"status"`
	Priority       int             `json:"priority"                   db:"priority"`
	Payload        json.RawMessage `json:"payload"                    db:"payload"`
	DedupeKey      *string         `json:"dedupe_key,omitempty"       db:"dedupe_key"`
	ScheduledAt    time.Time       `json:"scheduled_at"               db:"scheduled_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"     db:"completed_at"`
	RetryCount     int             `json:"retry_count"                db:"retry_count"`
	MaxRetries     int             `json:"max_retries"                db:"max_retries"`
	LastError      *string         `json:"last_error,omitempty"       db:"last_error"`
	LeaseExpiresAt *time.Time      `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	CreatedAt      time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"                 db:"updated_at"`
}

// Attempt returns the 1-based attempt number of the current execution.
func (t *Task) Attempt() int {
	if t == nil {
		return 0
	}
	return t.RetryCount + 1
}

// CreateTaskRequest describes a task to enqueue.
type CreateTaskRequest struct {
	Type        TaskType        `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Priority    int             `json:"priority,omitempty"`
	DedupeKey   string          `json:"dedupe_key,omitempty"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
	MaxRetries  int             `json:"max_retries"`
}

// Validate validates the CreateTaskRequest fields.
func (r *CreateTaskRequest) Validate() error {
	if !r.Type.Valid() {
		return errors.New("invalid task type")
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	if !json.Valid(r.Payload) {
		return errors.New("payload must be valid JSON")
	}
	if r.Priority < 0 || r.Priority > 100 {
		return errors.New("priority must be between 0 and 100")
	}
	if r.MaxRetries < 0 {
		return errors.New("max retries must be >= 0")
	}
	return nil
}

// TaskStats counts tasks of one type by status.
type TaskStats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// ValidTaskID reports whether id is a well-formed task identifier.
func ValidTaskID(id string) bool {
	_, err := uuid.Parse(strings.TrimSpace(id))
	return err == nil
}
