package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
	apperrors "github.com/target/mmk-bulkval/internal/errors"
)

// DefaultExpandChunkSize is the number of add-ons per expand task.
const DefaultExpandChunkSize = 100

// ValidationJobServiceOptions groups dependencies for ValidationJobService.
type ValidationJobServiceOptions struct {
	Jobs     core.ValidationJobRepository
	Results  core.ValidationResultRepository
	Catalog  core.CatalogRepository
	Enqueuer core.TaskEnqueuer
	// Progress is optional. Without it every Status call reads Postgres.
	Progress       core.ProgressCache
	ChunkSize      int
	ExpandPriority int
	Logger         *slog.Logger
}

// ValidationJobService creates jobs and reports on them.
type ValidationJobService struct {
	jobs      core.ValidationJobRepository
	results   core.ValidationResultRepository
	catalog   core.CatalogRepository
	enqueuer  core.TaskEnqueuer
	progress  core.ProgressCache
	chunkSize int
	priority  int
	logger    *slog.Logger
}

// NewValidationJobService constructs a ValidationJobService.
func NewValidationJobService(opts ValidationJobServiceOptions) (*ValidationJobService, error) {
	if opts.Jobs == nil || opts.Results == nil || opts.Catalog == nil || opts.Enqueuer == nil {
		return nil, errors.New("validation job service requires job, result and catalog repositories and an enqueuer")
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultExpandChunkSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationJobService{
		jobs:      opts.Jobs,
		results:   opts.Results,
		catalog:   opts.Catalog,
		enqueuer:  opts.Enqueuer,
		progress:  opts.Progress,
		chunkSize: chunk,
		priority:  opts.ExpandPriority,
		logger:    logger.With("component", "validation_job_service"),
	}, nil
}

// Create checks that both versions belong to the application, stores the job and
// starts it.
func (s *ValidationJobService) Create(ctx context.Context, req *model.CreateValidationJobRequest) (*model.ValidationJob, error) {
	if req == nil {
		return nil, apperrors.Validation("create validation job request is required")
	}
	if err := model.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid validation job")
	}
	if _, err := s.catalog.GetApplication(ctx, req.ApplicationID); err != nil {
		return nil, fmt.Errorf("create validation job: %w", err)
	}
	versions := []struct {
		field string
		id    int64
	}{
		{"curr_max_version_id", req.CurrMaxVersionID},
		{"target_version_id", req.TargetVersionID},
	}
	for _, ref := range versions {
		v, err := s.catalog.GetAppVersion(ctx, ref.id)
		if err != nil {
			return nil, fmt.Errorf("create validation job: %w", err)
		}
		if v.ApplicationID != req.ApplicationID {
			return nil, apperrors.ValidationField(ref.field, "version does not belong to the application")
		}
	}

	job, err := s.jobs.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create validation job: %w", err)
	}
	s.logger.InfoContext(ctx, "validation job created",
		"job_id", job.ID,
		"application", job.ApplicationName,
		"curr_max", job.CurrMaxVersion.Version,
		"target", job.TargetVersion.Version,
		"addons", len(req.AddonIDs),
	)
	if err := s.Start(ctx, job.ID, req.AddonIDs); err != nil {
		return job, err
	}
	return job, nil
}

// Start records the number of chunks on the job, then enqueues one expand task per
// chunk of add-on ids. Chunks are keyed by job and offset so starting a job twice
// enqueues nothing new.
func (s *ValidationJobService) Start(ctx context.Context, jobID int64, addonIDs []int64) error {
	ids := slices.Clone(addonIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	chunks := chunkIDs(ids, s.chunkSize)

	if err := s.jobs.SetExpandChunks(ctx, jobID, len(chunks)); err != nil {
		return fmt.Errorf("record expand chunks of job %d: %w", jobID, err)
	}

	var enqueued int
	for i, chunk := range chunks {
		_, err := s.enqueuer.Enqueue(ctx, model.TaskTypeExpand, model.ExpandPayload{JobID: jobID, AddonIDs: chunk, Chunk: i},
			core.EnqueueOptions{
				Priority:  s.priority,
				DedupeKey: ExpandDedupeKey(jobID, i),
			})
		if err != nil {
			return fmt.Errorf("enqueue expand chunk %d of job %d: %w", i, jobID, err)
		}
		enqueued++
	}
	s.logger.InfoContext(ctx, "validation job started", "job_id", jobID, "chunks", enqueued)
	return nil
}

// ExpandDedupeKey identifies one expand chunk of a job.
func ExpandDedupeKey(jobID int64, chunk int) string {
	return fmt.Sprintf("expand:%d:%d", jobID, chunk)
}

func chunkIDs(ids []int64, size int) [][]int64 {
	var out [][]int64
	for c := range slices.Chunk(ids, size) {
		out = append(out, c)
	}
	return out
}

// JobStatus is the admin view of a job.
type JobStatus struct {
	Job        *model.ValidationJob
	Progress   *model.JobProgress
	TaskErrors []*model.ValidationResult
}

// Status loads a job with its progress and up to errLimit crashed results. Progress
// comes from the cache when a snapshot is fresh.
func (s *ValidationJobService) Status(ctx context.Context, jobID int64, errLimit int) (*JobStatus, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("job status: %w", err)
	}
	progress, err := s.Progress(ctx, jobID)
	if err != nil {
		return nil, err
	}
	st := &JobStatus{Job: job, Progress: progress}
	if progress.Errored > 0 {
		if st.TaskErrors, err = s.results.ListTaskErrors(ctx, jobID, errLimit); err != nil {
			return nil, fmt.Errorf("job status: %w", err)
		}
	}
	return st, nil
}

// Progress returns the aggregate result counts of a job.
func (s *ValidationJobService) Progress(ctx context.Context, jobID int64) (*model.JobProgress, error) {
	if s.progress != nil {
		cached, err := s.progress.Get(ctx, jobID)
		if err != nil {
			s.logger.WarnContext(ctx, "progress cache read failed", "job_id", jobID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}
	p, err := s.results.Progress(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("job progress: %w", err)
	}
	if s.progress != nil {
		if err := s.progress.Put(ctx, p); err != nil {
			s.logger.WarnContext(ctx, "progress cache write failed", "job_id", jobID, "error", err)
		}
	}
	return p, nil
}

// Get loads a job.
func (s *ValidationJobService) Get(ctx context.Context, jobID int64) (*model.ValidationJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}

// List returns jobs newest first.
func (s *ValidationJobService) List(ctx context.Context, limit, offset int) ([]*model.ValidationJob, error) {
	return s.jobs.List(ctx, limit, offset)
}
