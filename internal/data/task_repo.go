package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/target/mmk-bulkval/internal/domain/model"
)

var (
	// ErrTaskNotFound is returned when a task is not found.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskNotDeletable is returned when deleting a running task.
	ErrTaskNotDeletable = errors.New("task cannot be deleted while running")
)

// TaskRepoConfig holds configuration options for the task repository.
type TaskRepoConfig struct {
	// RetryDelay is the base delay before a failed task is retried. The n-th retry
	// waits n times this delay.
	RetryDelay   time.Duration
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// TaskRepo is the Postgres task queue.
type TaskRepo struct {
	DB     *sql.DB
	cfg    TaskRepoConfig
	clock  TimeProvider
	logger *slog.Logger
}

// NewTaskRepo creates a TaskRepo.
func NewTaskRepo(db *sql.DB, cfg TaskRepoConfig) *TaskRepo {
	clock := cfg.TimeProvider
	if clock == nil {
		clock = &RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskRepo{DB: db, cfg: cfg, clock: clock, logger: logger.With("component", "task_repo")}
}

const defaultRetryDelay = 30 * time.Second

func (r *TaskRepo) retryDelaySeconds() int {
	if r.cfg.RetryDelay >= time.Second {
		return int(r.cfg.RetryDelay / time.Second)
	}
	return int(defaultRetryDelay / time.Second)
}

// taskChannel is the NOTIFY channel announcing new tasks of a type.
func taskChannel(taskType model.TaskType) string {
	return "task_added_" + string(taskType)
}

const taskColumns = `id, type, status, priority, payload, dedupe_key, scheduled_at, started_at,
  completed_at, retry_count, max_retries, last_error, lease_expires_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type taskRow struct {
	payload                                []byte
	dedupeKey, lastError                   sql.NullString
	startedAt, completedAt, leaseExpiresAt sql.NullTime
}

func (d *taskRow) targets(t *model.Task, extra ...any) []any {
	return append([]any{
		&t.ID, &t.Type, &t.Status, &t.Priority, &d.payload, &d.dedupeKey, &t.ScheduledAt,
		&d.startedAt, &d.completedAt, &t.RetryCount, &t.MaxRetries, &d.lastError,
		&d.leaseExpiresAt, &t.CreatedAt, &t.UpdatedAt,
	}, extra...)
}

func (d *taskRow) apply(t *model.Task) {
	t.Payload = cloneJSON(d.payload)
	t.DedupeKey = nullString(d.dedupeKey)
	t.LastError = nullString(d.lastError)
	t.StartedAt = nullTime(d.startedAt)
	t.CompletedAt = nullTime(d.completedAt)
	t.LeaseExpiresAt = nullTime(d.leaseExpiresAt)
	t.ScheduledAt = t.ScheduledAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
}

func scanTask(s rowScanner, extra ...any) (*model.Task, error) {
	t := &model.Task{}
	var row taskRow
	if err := s.Scan(row.targets(t, extra...)...); err != nil {
		return nil, err
	}
	row.apply(t)
	return t, nil
}

func cloneJSON(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`{}`)
	}
	return append(json.RawMessage(nil), raw...)
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
