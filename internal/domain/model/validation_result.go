package model

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrValidationResultNotFound is returned when a validation result does not exist.
var ErrValidationResultNotFound = errors.New("validation result not found")

// ValidationMessage is a single finding reported by the validator.
type ValidationMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationReport is the structured output of one validator run.
type ValidationReport struct {
	Errors   int                 `json:"errors"`
	Warnings int                 `json:"warnings"`
	Notices  int                 `json:"notices"`
	Messages []ValidationMessage `json:"messages,omitempty"`
	Raw      json.RawMessage     `json:"-"`
}

// ValidationResult is the per-file outcome record within a job.
//
// Once completed a result carries either an outcome (Errors etc. non-nil) or a
// TaskError, never both.
type ValidationResult struct {
	ID        int64               `json:"id"                   db:"id"`
	JobID     int64               `json:"validation_job_id"    db:"validation_job_id"`
	FileID    int64               `json:"file_id"              db:"file_id"`
	Completed *time.Time          `json:"completed,omitempty"  db:"completed_at"`
	Errors    *int                `json:"errors,omitempty"     db:"errors"`
	Warnings  *int                `json:"warnings,omitempty"   db:"warnings"`
	Notices   *int                `json:"notices,omitempty"    db:"notices"`
	Messages  []ValidationMessage `json:"messages,omitempty"   db:"messages"`
	TaskError *string             `json:"task_error,omitempty" db:"task_error"`
	CreatedAt time.Time           `json:"created_at"           db:"created_at"`
}

// IsCompleted reports whether the result has been processed at least once.
func (r *ValidationResult) IsCompleted() bool {
	return r != nil && r.Completed != nil
}

// HasOutcome reports whether a validation outcome has been applied.
func (r *ValidationResult) HasOutcome() bool {
	return r != nil && r.Errors != nil
}

// HasErrors reports whether the applied outcome contains validation errors.
func (r *ValidationResult) HasErrors() bool {
	return r.HasOutcome() && *r.Errors > 0
}

// ApplyOutcome records a successful validator run, clearing any earlier task error.
func (r *ValidationResult) ApplyOutcome(report *ValidationReport, at time.Time) {
	if report == nil {
		report = &ValidationReport{}
	}
	errs, warns, notices := report.Errors, report.Warnings, report.Notices
	r.Errors = &errs
	r.Warnings = &warns
	r.Notices = &notices
	r.Messages = append([]ValidationMessage(nil), report.Messages...)
	r.TaskError = nil
	r.Completed = &at
}

// ApplyTaskError records a failed validator run, clearing any earlier outcome.
func (r *ValidationResult) ApplyTaskError(trace string, at time.Time) {
	r.Errors = nil
	r.Warnings = nil
	r.Notices = nil
	r.Messages = nil
	r.TaskError = &trace
	r.Completed = &at
}

// ResultTarget bundles a result with everything a worker needs to validate it.
type ResultTarget struct {
	Result          ValidationResult
	FilePath        string
	Filename        string
	ApplicationGUID string
	TargetVersion   string
}

// AttemptStatus classifies one validation attempt.
type AttemptStatus string

const (
	// AttemptSucceeded means the validator produced an outcome.
	AttemptSucceeded AttemptStatus = "succeeded"
	// AttemptRetryable means the validator failed and the task should be retried.
	AttemptRetryable AttemptStatus = "retryable"
)

// AttemptResult is returned from a validation worker to the queue layer, which decides
// whether to complete or fail the task.
type AttemptResult struct {
	Status AttemptStatus
	Trace  string
}

// Retryable reports whether the queue should run its failure path.
func (a AttemptResult) Retryable() bool {
	return a.Status == AttemptRetryable
}
