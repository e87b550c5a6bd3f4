package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/target/mmk-bulkval/internal/domain/model"
)

// ErrValidationJobNotFound is returned when a validation job does not exist.
var ErrValidationJobNotFound = model.ErrValidationJobNotFound

// ValidationJobRepo stores validation jobs.
type ValidationJobRepo struct {
	DB    *sql.DB
	clock TimeProvider
}

// NewValidationJobRepo creates a ValidationJobRepo.
func NewValidationJobRepo(db *sql.DB, clock TimeProvider) *ValidationJobRepo {
	if clock == nil {
		clock = &RealTimeProvider{}
	}
	return &ValidationJobRepo{DB: db, clock: clock}
}

const selectValidationJobSQL = `
  SELECT j.id, j.application_id, j.finish_email, j.created_at, j.completed_at,
         a.name, a.guid, cm.id, cm.application_id, cm.version, tv.id, tv.application_id, tv.version,
         j.expand_chunks,
         j.expand_chunks - (SELECT count(*) FROM validation_job_expansions x WHERE x.validation_job_id = j.id)
  FROM validation_jobs j
  JOIN applications a ON a.id = j.application_id
  JOIN app_versions cm ON cm.id = j.curr_max_version_id
  JOIN app_versions tv ON tv.id = j.target_version_id`

func scanValidationJob(s rowScanner) (*model.ValidationJob, error) {
	var (
		j           model.ValidationJob
		finishEmail sql.NullString
		completedAt sql.NullTime
	)
	if err := s.Scan(
		&j.ID, &j.ApplicationID, &finishEmail, &j.CreatedAt, &completedAt,
		&j.ApplicationName, &j.ApplicationGUID,
		&j.CurrMaxVersion.ID, &j.CurrMaxVersion.ApplicationID, &j.CurrMaxVersion.Version,
		&j.TargetVersion.ID, &j.TargetVersion.ApplicationID, &j.TargetVersion.Version,
		&j.ExpandChunks, &j.PendingExpansions,
	); err != nil {
		return nil, err
	}
	j.FinishEmail = nullString(finishEmail)
	j.CompletedAt = nullTime(completedAt)
	j.CreatedAt = j.CreatedAt.UTC()
	return &j, nil
}

// Create inserts a job. The add-on ids of the request are not stored; they are handed
// to the expander.
func (r *ValidationJobRepo) Create(ctx context.Context, req *model.CreateValidationJobRequest) (*model.ValidationJob, error) {
	if req == nil {
		return nil, errors.New("create validation job request is required")
	}
	if err := model.ValidateStruct(req); err != nil {
		return nil, err
	}

	var id int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO validation_jobs (application_id, curr_max_version_id, target_version_id, finish_email, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, req.ApplicationID, req.CurrMaxVersionID, req.TargetVersionID, toNullString(req.FinishEmail),
		r.clock.Now().UTC()).Scan(&id)
	if err != nil {
		return nil, dbErr("insert validation job", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID loads a job with its application and version names.
func (r *ValidationJobRepo) GetByID(ctx context.Context, id int64) (*model.ValidationJob, error) {
	j, err := scanValidationJob(r.DB.QueryRowContext(ctx, selectValidationJobSQL+` WHERE j.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrValidationJobNotFound
	}
	if err != nil {
		return nil, dbErr("get validation job", err)
	}
	return j, nil
}

// List returns jobs newest first.
func (r *ValidationJobRepo) List(ctx context.Context, limit, offset int) ([]*model.ValidationJob, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, selectValidationJobSQL+` ORDER BY j.id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, dbErr("list validation jobs", err)
	}
	defer rows.Close()

	var out []*model.ValidationJob
	for rows.Next() {
		j, err := scanValidationJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan validation job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// MarkCompleted sets completed_at once. The update only applies when every expand
// chunk has run and no seeded result is still open. Concurrent callers race on the
// row lock and exactly one of them observes an affected row.
func (r *ValidationJobRepo) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE validation_jobs j SET completed_at = $2
		WHERE j.id = $1 AND j.completed_at IS NULL
		  AND j.expand_chunks <= (SELECT count(*) FROM validation_job_expansions x WHERE x.validation_job_id = j.id)
		  AND NOT EXISTS (
		      SELECT 1 FROM validation_results r
		      WHERE r.validation_job_id = j.id AND r.completed_at IS NULL)
	`, id, r.clock.Now().UTC())
	if err != nil {
		return false, dbErr("mark validation job completed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark completed rows affected: %w", err)
	}
	return n == 1, nil
}

// SetExpandChunks records the number of expand chunks of a job.
func (r *ValidationJobRepo) SetExpandChunks(ctx context.Context, id int64, chunks int) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE validation_jobs SET expand_chunks = $2 WHERE id = $1`, id, chunks)
	if err != nil {
		return dbErr("set expand chunks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set expand chunks rows affected: %w", err)
	}
	if n == 0 {
		return ErrValidationJobNotFound
	}
	return nil
}

// MarkChunkExpanded records that an expand chunk finished. Recording the same chunk
// again is a no-op. It returns how many chunks are still pending.
func (r *ValidationJobRepo) MarkChunkExpanded(ctx context.Context, id int64, chunk int) (int, error) {
	var pending int
	err := r.DB.QueryRowContext(ctx, `
		WITH ins AS (
		    INSERT INTO validation_job_expansions (validation_job_id, chunk, expanded_at)
		    VALUES ($1, $2, $3)
		    ON CONFLICT (validation_job_id, chunk) DO NOTHING
		    RETURNING chunk
		)
		SELECT j.expand_chunks
		       - (SELECT count(*) FROM validation_job_expansions x WHERE x.validation_job_id = j.id)
		       - (SELECT count(*) FROM ins)
		FROM validation_jobs j
		WHERE j.id = $1
	`, id, chunk, r.clock.Now().UTC()).Scan(&pending)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrValidationJobNotFound
	}
	if err != nil {
		return 0, dbErr("mark chunk expanded", err)
	}
	return max(pending, 0), nil
}
