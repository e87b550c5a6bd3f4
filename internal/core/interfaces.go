package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/target/mmk-bulkval/internal/domain/model"
)

// Repository ports. Services depend on these; internal/data provides the Postgres
// implementations.

// TaskRepository defines the durable task queue.
type TaskRepository interface {
	// Create enqueues a task. When the request carries a dedupe key that is already
	// taken, the existing task is returned and inserted is false.
	Create(ctx context.Context, req *model.CreateTaskRequest) (task *model.Task, inserted bool, err error)
	GetByID(ctx context.Context, id string) (*model.Task, error)
	ReserveNext(ctx context.Context, taskType model.TaskType, leaseSeconds int) (*model.Task, error)
	WaitForNotification(ctx context.Context, taskType model.TaskType) error
	Heartbeat(ctx context.Context, id string, leaseSeconds int) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	Stats(ctx context.Context, taskType model.TaskType) (*model.TaskStats, error)
	Delete(ctx context.Context, id string) error
}

// TaskRepositoryTx defines optional transactional task creation support.
type TaskRepositoryTx interface {
	CreateInTx(ctx context.Context, tx *sql.Tx, req *model.CreateTaskRequest) (*model.Task, bool, error)
}

// ValidationJobRepository stores bulk validation jobs.
type ValidationJobRepository interface {
	Create(ctx context.Context, req *model.CreateValidationJobRequest) (*model.ValidationJob, error)
	GetByID(ctx context.Context, id int64) (*model.ValidationJob, error)
	List(ctx context.Context, limit, offset int) ([]*model.ValidationJob, error)
	// MarkCompleted sets completed_at if it is still NULL and reports whether this
	// call performed the transition.
	MarkCompleted(ctx context.Context, id int64) (bool, error)
	// SetExpandChunks records how many expand chunks the job was started with.
	SetExpandChunks(ctx context.Context, id int64, chunks int) error
	// MarkChunkExpanded records a finished chunk, once per chunk, and returns the
	// number of chunks still pending.
	MarkChunkExpanded(ctx context.Context, id int64, chunk int) (int, error)
}

// ValidationResultRepository stores per-file results.
type ValidationResultRepository interface {
	// Seed creates a result per file, skipping files that already have one, and
	// returns every result of the job for those files.
	Seed(ctx context.Context, jobID int64, fileIDs []int64) ([]*model.ValidationResult, error)
	GetTarget(ctx context.Context, resultID int64) (*model.ResultTarget, error)
	Save(ctx context.Context, result *model.ValidationResult) error
	Counts(ctx context.Context, jobID int64) (model.ResultCounts, error)
	ListForVersion(ctx context.Context, jobID, versionID int64) ([]*model.ValidationResult, error)
	ListForFiles(ctx context.Context, jobID int64, fileIDs []int64) ([]*model.ValidationResult, error)
	Progress(ctx context.Context, jobID int64) (*model.JobProgress, error)
	ListTaskErrors(ctx context.Context, jobID int64, limit int) ([]*model.ValidationResult, error)
}

// CandidateQuery selects the files of an add-on eligible for a job.
type CandidateQuery struct {
	AddonID          int64
	ApplicationID    int64
	CurrMaxVersionID int64
}

// CatalogRepository reads the add-on catalog and performs the compat bump.
type CatalogRepository interface {
	GetApplication(ctx context.Context, id int64) (*model.Application, error)
	GetAppVersion(ctx context.Context, id int64) (*model.AppVersion, error)
	GetAddon(ctx context.Context, id int64) (*model.Addon, error)
	ListCandidateFiles(ctx context.Context, q CandidateQuery) ([]model.CandidateFile, error)
	GetVersionDetail(ctx context.Context, versionID int64) (*model.VersionDetail, error)
	GetFileDetail(ctx context.Context, fileID int64) (*model.FileDetail, error)
	ListCompatEntries(ctx context.Context, versionID, applicationID int64) ([]*model.CompatEntry, error)
	SetCompatMax(ctx context.Context, entryID, maxVersionID int64) error
	ListAuthors(ctx context.Context, addonID int64) ([]model.Author, error)
}

// EmailPreviewRepository stores rendered messages captured in preview mode.
type EmailPreviewRepository interface {
	Insert(ctx context.Context, preview *model.EmailPreview) error
	ListByTopic(ctx context.Context, topic string) ([]*model.EmailPreview, error)
}

// DeleteOldTasksParams groups parameters for ReaperRepository.DeleteOldTasks.
type DeleteOldTasksParams struct {
	Status    model.TaskStatus
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines task cleanup operations.
type ReaperRepository interface {
	// FailStalePendingTasks marks pending tasks older than maxAge as failed.
	FailStalePendingTasks(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
	// DeleteOldTasks deletes up to BatchSize tasks with the given status older than MaxAge.
	DeleteOldTasks(ctx context.Context, params DeleteOldTasksParams) (int64, error)
}

// ProgressCache keeps short-lived job progress snapshots.
type ProgressCache interface {
	// Get returns nil, nil when nothing is cached.
	Get(ctx context.Context, jobID int64) (*model.JobProgress, error)
	Put(ctx context.Context, p *model.JobProgress) error
}
