package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/target/mmk-bulkval/internal/data/pgxutil"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

const defaultMaxRetries = 3

// A conflicting dedupe key returns the live task. A task that already failed for
// good is revived so that re-enqueueing the same work is never silently dropped.
const insertTaskSQL = `
  INSERT INTO tasks (type, status, priority, payload, dedupe_key, scheduled_at, max_retries)
  VALUES ($1, 'pending', $2, $3, $4, $5, $6)
  ON CONFLICT (dedupe_key) WHERE dedupe_key IS NOT NULL DO UPDATE
  SET status = CASE WHEN tasks.status = 'failed' THEN 'pending' ELSE tasks.status END,
      retry_count = CASE WHEN tasks.status = 'failed' THEN 0 ELSE tasks.retry_count END,
      completed_at = CASE WHEN tasks.status = 'failed' THEN NULL ELSE tasks.completed_at END,
      scheduled_at = CASE WHEN tasks.status = 'failed' THEN EXCLUDED.scheduled_at ELSE tasks.scheduled_at END,
      updated_at = now()
  RETURNING ` + taskColumns + `, (xmax = 0) AS inserted`

const reserveNextSQL = `
  WITH next AS (
    SELECT id FROM tasks
    WHERE type = $1 AND status = 'pending' AND scheduled_at <= $2
    ORDER BY priority DESC, scheduled_at ASC, created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE tasks t
  SET status = 'running',
      started_at = COALESCE(t.started_at, $2),
      lease_expires_at = $3,
      updated_at = $2
  FROM next
  WHERE t.id = next.id
  RETURNING t.id, t.type, t.status, t.priority, t.payload, t.dedupe_key, t.scheduled_at, t.started_at,
    t.completed_at, t.retry_count, t.max_retries, t.last_error, t.lease_expires_at, t.created_at, t.updated_at`

func (r *TaskRepo) prepare(req *model.CreateTaskRequest) ([]any, error) {
	if req == nil {
		return nil, errors.New("create task request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	scheduledAt := r.clock.Now().UTC()
	if req.ScheduledAt != nil {
		scheduledAt = req.ScheduledAt.UTC()
	}
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return []any{
		req.Type, req.Priority, []byte(req.Payload), toNullString(req.DedupeKey), scheduledAt, maxRetries,
	}, nil
}

// Create enqueues a task and wakes listeners for its type in the same transaction.
func (r *TaskRepo) Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, bool, error) {
	args, err := r.prepare(req)
	if err != nil {
		return nil, false, err
	}

	var (
		task     *model.Task
		inserted bool
	)
	err = pgxutil.InPgxTx(ctx, r.DB, nil, func(tx pgx.Tx) error {
		t, scanErr := scanTask(tx.QueryRow(ctx, insertTaskSQL, args...), &inserted)
		if scanErr != nil {
			return fmt.Errorf("insert task: %w", scanErr)
		}
		task = t
		if task.Status != model.TaskStatusPending {
			return nil
		}
		if _, notifyErr := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, taskChannel(task.Type), task.ID); notifyErr != nil {
			return fmt.Errorf("notify task: %w", notifyErr)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return task, inserted, nil
}

// CreateInTx enqueues a task inside the caller's transaction.
func (r *TaskRepo) CreateInTx(ctx context.Context, tx *sql.Tx, req *model.CreateTaskRequest) (*model.Task, bool, error) {
	if tx == nil {
		return nil, false, errors.New("transaction is required")
	}
	args, err := r.prepare(req)
	if err != nil {
		return nil, false, err
	}

	var inserted bool
	task, err := scanTask(tx.QueryRowContext(ctx, insertTaskSQL, args...), &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("insert task: %w", err)
	}
	if task.Status == model.TaskStatusPending {
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, taskChannel(task.Type), task.ID); err != nil {
			return nil, false, fmt.Errorf("notify task: %w", err)
		}
	}
	return task, inserted, nil
}

// Advisory lock namespace for requeueExpired; the minor key is per task type.
const requeueLockMajor int32 = 2001

func requeueLockMinor(taskType model.TaskType) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(taskType))
	return int32(h.Sum32() & 0x7fffffff)
}

// requeueExpired returns running tasks whose lease lapsed to the pending state. Only
// one reserver per task type does the sweep at a time.
func (r *TaskRepo) requeueExpired(ctx context.Context, taskType model.TaskType) (int64, error) {
	var n int64
	err := pgxutil.InTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		var locked bool
		if err := tx.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock($1, $2)`,
			requeueLockMajor, requeueLockMinor(taskType)).Scan(&locked); err != nil {
			return fmt.Errorf("acquire requeue lock: %w", err)
		}
		if !locked {
			return nil
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks
			SET status = 'pending', lease_expires_at = NULL, updated_at = $2
			WHERE type = $1 AND status = 'running' AND lease_expires_at < $2
		`, taskType, r.clock.Now().UTC())
		if err != nil {
			return fmt.Errorf("requeue expired: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.WarnContext(ctx, "requeued tasks with expired leases", "task_type", taskType, "count", n)
	}
	return n, nil
}

// ReserveNext leases the next due task of the given type.
func (r *TaskRepo) ReserveNext(ctx context.Context, taskType model.TaskType, leaseSeconds int) (*model.Task, error) {
	if !taskType.Valid() {
		return nil, fmt.Errorf("invalid task type: %s", taskType)
	}
	if leaseSeconds <= 0 {
		return nil, errors.New("leaseSeconds must be positive")
	}
	if _, err := r.requeueExpired(ctx, taskType); err != nil {
		return nil, err
	}

	now := r.clock.Now().UTC()
	lease := now.Add(time.Duration(leaseSeconds) * time.Second)
	task, err := scanTask(r.DB.QueryRowContext(ctx, reserveNextSQL, taskType, now, lease))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNoTasksAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("reserve task: %w", err)
	}
	return task, nil
}

// Heartbeat extends the lease of a running task. It reports false when the task is
// no longer running.
func (r *TaskRepo) Heartbeat(ctx context.Context, id string, leaseSeconds int) (bool, error) {
	if leaseSeconds <= 0 {
		return false, errors.New("leaseSeconds must be positive")
	}
	now := r.clock.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE tasks SET lease_expires_at = $2, updated_at = $3
		WHERE id = $1 AND status = 'running'
	`, id, now.Add(time.Duration(leaseSeconds)*time.Second), now)
	if err != nil {
		return false, fmt.Errorf("heartbeat task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("heartbeat rows affected: %w", err)
	}
	return n > 0, nil
}

// Complete marks a running task completed.
func (r *TaskRepo) Complete(ctx context.Context, id string) (bool, error) {
	now := r.clock.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE tasks
		SET status = 'completed', completed_at = $2, updated_at = $2,
		    lease_expires_at = NULL, last_error = NULL
		WHERE id = $1 AND status = 'running'
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("complete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete rows affected: %w", err)
	}
	return n > 0, nil
}

// Fail records a failed attempt. The task goes back to pending with a growing delay
// until max_retries attempts have failed, after which it is marked failed.
func (r *TaskRepo) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	now := r.clock.Now().UTC()
	var status string
	err := r.DB.QueryRowContext(ctx, `
		UPDATE tasks
		SET last_error = $2,
		    retry_count = retry_count + 1,
		    status = CASE WHEN retry_count + 1 >= max_retries THEN 'failed' ELSE 'pending' END,
		    completed_at = CASE WHEN retry_count + 1 >= max_retries THEN $3::timestamptz ELSE NULL END,
		    scheduled_at = CASE WHEN retry_count + 1 >= max_retries THEN scheduled_at
		                        ELSE $3::timestamptz + make_interval(secs => $4::int * (retry_count + 1)) END,
		    lease_expires_at = NULL,
		    updated_at = $3
		WHERE id = $1 AND status = 'running'
		RETURNING status
	`, id, errMsg, now, r.retryDelaySeconds()).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fail task: %w", err)
	}
	if model.TaskStatus(status) == model.TaskStatusFailed {
		r.logger.WarnContext(ctx, "task exhausted retries", "task_id", id)
	}
	return true, nil
}

// Stats counts tasks of a type by status.
func (r *TaskRepo) Stats(ctx context.Context, taskType model.TaskType) (*model.TaskStats, error) {
	var s model.TaskStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT
		  count(*) FILTER (WHERE status = 'pending'),
		  count(*) FILTER (WHERE status = 'running'),
		  count(*) FILTER (WHERE status = 'completed'),
		  count(*) FILTER (WHERE status = 'failed')
		FROM tasks WHERE type = $1
	`, taskType).Scan(&s.Pending, &s.Running, &s.Completed, &s.Failed)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	return &s, nil
}

// WaitForNotification blocks until a task of the type is enqueued or ctx ends.
func (r *TaskRepo) WaitForNotification(ctx context.Context, taskType model.TaskType) error {
	_, err := pgxutil.Listen(ctx, r.DB, taskChannel(taskType))
	return err
}

// GetByID loads a task.
func (r *TaskRepo) GetByID(ctx context.Context, id string) (*model.Task, error) {
	if !model.ValidTaskID(id) {
		return nil, ErrTaskNotFound
	}
	var task *model.Task
	err := pgxutil.WithConn(ctx, r.DB, func(conn *pgx.Conn) error {
		t, err := scanTask(conn.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
		task = t
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Delete removes a task that is not currently leased.
func (r *TaskRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM tasks
		WHERE id = $1 AND (status <> 'running' OR lease_expires_at <= $2)
	`, id, r.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrTaskNotDeletable
}
