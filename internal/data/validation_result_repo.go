package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/target/mmk-bulkval/internal/domain/model"
)

// ErrValidationResultNotFound is returned when a validation result does not exist.
var ErrValidationResultNotFound = model.ErrValidationResultNotFound

// ValidationResultRepo stores per-file validation results.
type ValidationResultRepo struct {
	DB    *sql.DB
	clock TimeProvider
}

// NewValidationResultRepo creates a ValidationResultRepo.
func NewValidationResultRepo(db *sql.DB, clock TimeProvider) *ValidationResultRepo {
	if clock == nil {
		clock = &RealTimeProvider{}
	}
	return &ValidationResultRepo{DB: db, clock: clock}
}

const resultColumns = `r.id, r.validation_job_id, r.file_id, r.completed_at, r.errors, r.warnings,
  r.notices, r.messages, r.task_error, r.created_at`

type resultRow struct {
	completedAt             sql.NullTime
	errs, warnings, notices sql.NullInt32
	messages                []byte
	taskError               sql.NullString
}

func scanResult(s rowScanner, extra ...any) (*model.ValidationResult, error) {
	var (
		res model.ValidationResult
		row resultRow
	)
	dest := append([]any{
		&res.ID, &res.JobID, &res.FileID, &row.completedAt, &row.errs, &row.warnings,
		&row.notices, &row.messages, &row.taskError, &res.CreatedAt,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	res.Completed = nullTime(row.completedAt)
	res.Errors = nullInt(row.errs)
	res.Warnings = nullInt(row.warnings)
	res.Notices = nullInt(row.notices)
	res.TaskError = nullString(row.taskError)
	res.CreatedAt = res.CreatedAt.UTC()
	if len(row.messages) > 0 {
		if err := json.Unmarshal(row.messages, &res.Messages); err != nil {
			return nil, fmt.Errorf("decode messages of result %d: %w", res.ID, err)
		}
	}
	return &res, nil
}

func nullInt(n sql.NullInt32) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func (r *ValidationResultRepo) queryResults(ctx context.Context, op, query string, args ...any) ([]*model.ValidationResult, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(op, err)
	}
	defer rows.Close()

	var out []*model.ValidationResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(op, err)
	}
	return out, nil
}

// Seed inserts a pending result per file and returns all results of the job for
// those files, including ones that already existed.
func (r *ValidationResultRepo) Seed(ctx context.Context, jobID int64, fileIDs []int64) ([]*model.ValidationResult, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO validation_results (validation_job_id, file_id, created_at)
		SELECT $1, f, $3 FROM unnest($2::bigint[]) AS f
		ON CONFLICT (validation_job_id, file_id) DO NOTHING
	`, jobID, fileIDs, r.clock.Now().UTC()); err != nil {
		return nil, dbErr("seed validation results", err)
	}
	return r.ListForFiles(ctx, jobID, fileIDs)
}

// GetTarget loads a result with its file and the job's target application version.
func (r *ValidationResultRepo) GetTarget(ctx context.Context, resultID int64) (*model.ResultTarget, error) {
	var t model.ResultTarget
	res, err := scanResult(r.DB.QueryRowContext(ctx, `
		SELECT `+resultColumns+`, f.file_path, f.filename, a.guid, tv.version
		FROM validation_results r
		JOIN files f ON f.id = r.file_id
		JOIN validation_jobs j ON j.id = r.validation_job_id
		JOIN applications a ON a.id = j.application_id
		JOIN app_versions tv ON tv.id = j.target_version_id
		WHERE r.id = $1
	`, resultID), &t.FilePath, &t.Filename, &t.ApplicationGUID, &t.TargetVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrValidationResultNotFound
	}
	if err != nil {
		return nil, dbErr("get validation target", err)
	}
	t.Result = *res
	return &t, nil
}

// Save writes the completion time and outcome columns of a result.
func (r *ValidationResultRepo) Save(ctx context.Context, res *model.ValidationResult) error {
	if res == nil {
		return errors.New("validation result is required")
	}
	var messages any
	if res.HasOutcome() {
		b, err := json.Marshal(res.Messages)
		if err != nil {
			return fmt.Errorf("encode messages: %w", err)
		}
		messages = b
	}
	var completed any
	if res.Completed != nil {
		completed = res.Completed.UTC()
	}

	out, err := r.DB.ExecContext(ctx, `
		UPDATE validation_results
		SET completed_at = $2, errors = $3, warnings = $4, notices = $5, messages = $6, task_error = $7
		WHERE id = $1
	`, res.ID, completed, intArg(res.Errors), intArg(res.Warnings), intArg(res.Notices), messages, res.TaskError)
	if err != nil {
		return dbErr("save validation result", err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return fmt.Errorf("save validation result rows affected: %w", err)
	}
	if n == 0 {
		return ErrValidationResultNotFound
	}
	return nil
}

// Counts returns the total and completed result counts of a job in one aggregate,
// together with the job's expand chunk bookkeeping. An unknown job counts as empty.
func (r *ValidationResultRepo) Counts(ctx context.Context, jobID int64) (model.ResultCounts, error) {
	var c model.ResultCounts
	err := r.DB.QueryRowContext(ctx, `
		SELECT
		  (SELECT count(*) FROM validation_results WHERE validation_job_id = $1),
		  (SELECT count(completed_at) FROM validation_results WHERE validation_job_id = $1),
		  COALESCE((SELECT expand_chunks FROM validation_jobs WHERE id = $1), 0),
		  COALESCE((SELECT expand_chunks FROM validation_jobs WHERE id = $1), 0)
		    - (SELECT count(*) FROM validation_job_expansions WHERE validation_job_id = $1)
	`, jobID).Scan(&c.Total, &c.Completed, &c.ExpandChunks, &c.PendingExpansions)
	if err != nil {
		return model.ResultCounts{}, dbErr("count validation results", err)
	}
	return c, nil
}

// ListForVersion returns the job's results for every file of an add-on version.
func (r *ValidationResultRepo) ListForVersion(ctx context.Context, jobID, versionID int64) ([]*model.ValidationResult, error) {
	return r.queryResults(ctx, "list results for version", `
		SELECT `+resultColumns+`
		FROM validation_results r
		JOIN files f ON f.id = r.file_id
		WHERE r.validation_job_id = $1 AND f.version_id = $2
		ORDER BY r.id
	`, jobID, versionID)
}

// ListForFiles returns the job's results for the given files.
func (r *ValidationResultRepo) ListForFiles(ctx context.Context, jobID int64, fileIDs []int64) ([]*model.ValidationResult, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	return r.queryResults(ctx, "list results for files", `
		SELECT `+resultColumns+`
		FROM validation_results r
		WHERE r.validation_job_id = $1 AND r.file_id = ANY($2::bigint[])
		ORDER BY r.id
	`, jobID, fileIDs)
}

// ListTaskErrors returns results whose last attempt crashed.
func (r *ValidationResultRepo) ListTaskErrors(ctx context.Context, jobID int64, limit int) ([]*model.ValidationResult, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.queryResults(ctx, "list task errors", `
		SELECT `+resultColumns+`
		FROM validation_results r
		WHERE r.validation_job_id = $1 AND r.task_error IS NOT NULL
		ORDER BY r.id
		LIMIT $2
	`, jobID, limit)
}

// Progress summarises a job's results.
func (r *ValidationResultRepo) Progress(ctx context.Context, jobID int64) (*model.JobProgress, error) {
	p := model.JobProgress{JobID: jobID}
	var finished sql.NullTime
	err := r.DB.QueryRowContext(ctx, `
		SELECT j.completed_at,
		       count(r.id),
		       count(r.completed_at),
		       count(*) FILTER (WHERE r.errors = 0),
		       count(*) FILTER (WHERE r.errors > 0),
		       count(*) FILTER (WHERE r.task_error IS NOT NULL)
		FROM validation_jobs j
		LEFT JOIN validation_results r ON r.validation_job_id = j.id
		WHERE j.id = $1
		GROUP BY j.id
	`, jobID).Scan(&finished, &p.Total, &p.Completed, &p.Passing, &p.Failing, &p.Errored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrValidationJobNotFound
	}
	if err != nil {
		return nil, dbErr("job progress", err)
	}
	p.FinishedAt = nullTime(finished)
	return &p, nil
}
