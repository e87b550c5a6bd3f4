package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/data/pgxutil"
)

// Advisory lock keys for reaper sweeps, namespaced under one major key.
const (
	reaperLockMajor       int32 = 2000
	reaperLockFailPending int32 = 1
	reaperLockDelete      int32 = 2
)

// sweep runs one batch statement while holding a transaction-scoped advisory lock.
// When another reaper holds the lock the sweep is skipped and reports zero rows.
func (r *TaskRepo) sweep(ctx context.Context, lockMinor int32, query string, args ...any) (int64, error) {
	var n int64
	err := pgxutil.InTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		var locked bool
		if err := tx.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock($1, $2)`,
			reaperLockMajor, lockMinor).Scan(&locked); err != nil {
			return fmt.Errorf("acquire reaper lock: %w", err)
		}
		if !locked {
			return nil
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// FailStalePendingTasks fails pending tasks that were created more than maxAge ago.
func (r *TaskRepo) FailStalePendingTasks(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if maxAge <= 0 || batchSize <= 0 {
		return 0, errors.New("max age and batch size must be positive")
	}
	now := r.clock.Now().UTC()
	n, err := r.sweep(ctx, reaperLockFailPending, `
		UPDATE tasks
		SET status = 'failed',
		    last_error = 'task timed out in pending status',
		    completed_at = $1,
		    updated_at = $1
		WHERE id IN (
		  SELECT id FROM tasks
		  WHERE status = 'pending' AND created_at < $2
		  ORDER BY created_at
		  LIMIT $3
		)
	`, now, now.Add(-maxAge), batchSize)
	if err != nil {
		return 0, fmt.Errorf("fail stale pending tasks: %w", err)
	}
	return n, nil
}

// DeleteOldTasks deletes up to BatchSize finished tasks in Status older than MaxAge.
func (r *TaskRepo) DeleteOldTasks(ctx context.Context, params core.DeleteOldTasksParams) (int64, error) {
	if !params.Status.Valid() {
		return 0, fmt.Errorf("invalid task status: %s", params.Status)
	}
	if params.MaxAge <= 0 || params.BatchSize <= 0 {
		return 0, errors.New("max age and batch size must be positive")
	}
	cutoff := r.clock.Now().UTC().Add(-params.MaxAge)
	n, err := r.sweep(ctx, reaperLockDelete, `
		DELETE FROM tasks
		WHERE id IN (
		  SELECT id FROM tasks
		  WHERE status = $1
		    AND COALESCE(completed_at, updated_at) < $2
		  ORDER BY COALESCE(completed_at, updated_at)
		  LIMIT $3
		)
	`, params.Status, cutoff, params.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("delete old tasks: %w", err)
	}
	return n, nil
}

var _ core.ReaperRepository = (*TaskRepo)(nil)
var _ core.TaskRepository = (*TaskRepo)(nil)
var _ core.TaskRepositoryTx = (*TaskRepo)(nil)
