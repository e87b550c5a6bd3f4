package model

import (
	"errors"
	"time"
)

// ErrValidationJobNotFound is returned when a validation job does not exist.
var ErrValidationJobNotFound = errors.New("validation job not found")

// ValidationJob validates many files against a target application version.
type ValidationJob struct {
	ID              int64      `json:"id"                     db:"id"`
	ApplicationID   int64      `json:"application_id"         db:"application_id"`
	CurrMaxVersion  AppVersion `json:"curr_max_version"`
	TargetVersion   AppVersion `json:"target_version"`
	ApplicationName string     `json:"application_name"`
	ApplicationGUID string     `json:"application_guid"`
	FinishEmail     *string    `json:"finish_email,omitempty" db:"finish_email"`
	CreatedAt       time.Time  `json:"created_at"             db:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// ExpandChunks is the number of expand tasks the job was started with.
	ExpandChunks      int `json:"expand_chunks"      db:"expand_chunks"`
	// PendingExpansions counts the chunks that have not finished expanding yet.
	PendingExpansions int `json:"pending_expansions"`
}

// IsCompleted reports whether every result of the job has been processed.
func (j *ValidationJob) IsCompleted() bool {
	return j != nil && j.CompletedAt != nil
}

// CreateValidationJobRequest is the input of the job creation flow.
type CreateValidationJobRequest struct {
	ApplicationID    int64   `json:"application_id"         validate:"required,gt=0"`
	CurrMaxVersionID int64   `json:"curr_max_version_id"    validate:"required,gt=0"`
	TargetVersionID  int64   `json:"target_version_id"      validate:"required,gt=0,nefield=CurrMaxVersionID"`
	FinishEmail      string  `json:"finish_email,omitempty" validate:"omitempty,email"`
	AddonIDs         []int64 `json:"addon_ids"              validate:"required,min=1,dive,gt=0"`
}

// JobProgress is the aggregate completion state of a job's results.
type JobProgress struct {
	JobID      int64      `json:"job_id"`
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Passing    int        `json:"passing"`
	Failing    int        `json:"failing"`
	Errored    int        `json:"errored"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Done reports whether all results have completed.
func (p JobProgress) Done() bool {
	return p.Total > 0 && p.Completed == p.Total
}

// ResultCounts is the aggregate used to decide whether a job has finished.
type ResultCounts struct {
	Total     int
	Completed int
	// ExpandChunks and PendingExpansions come from the job row.
	ExpandChunks      int
	PendingExpansions int
}

// AllCompleted reports whether every chunk has been expanded and every seeded
// result completed. A job without results counts only after its chunks ran.
func (c ResultCounts) AllCompleted() bool {
	if c.PendingExpansions > 0 || c.Completed != c.Total {
		return false
	}
	return c.Total > 0 || c.ExpandChunks > 0
}
