package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
	"github.com/target/mmk-bulkval/internal/domain/selection"
)

// ExpanderOptions groups dependencies for Expander.
type ExpanderOptions struct {
	Jobs     core.ValidationJobRepository
	Results  core.ValidationResultRepository
	Catalog  core.CatalogRepository
	Enqueuer core.TaskEnqueuer
	Tallier  *Tallier
	// ValidatePriority is the priority of enqueued validate_file tasks.
	ValidatePriority int
	Logger           *slog.Logger
}

// Expander turns a batch of add-ons into seeded results and validate_file tasks.
type Expander struct {
	jobs     core.ValidationJobRepository
	results  core.ValidationResultRepository
	catalog  core.CatalogRepository
	enqueuer core.TaskEnqueuer
	tallier  *Tallier
	priority int
	logger   *slog.Logger
}

// ExpandSummary reports what one Expand call did.
type ExpandSummary struct {
	Addons   int
	Skipped  int
	Results  int
	Enqueued int
}

// NewExpander constructs an Expander.
func NewExpander(opts ExpanderOptions) (*Expander, error) {
	if opts.Jobs == nil || opts.Results == nil || opts.Catalog == nil || opts.Enqueuer == nil || opts.Tallier == nil {
		return nil, errors.New("expander requires job, result and catalog repositories, an enqueuer and a tallier")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{
		jobs:     opts.Jobs,
		results:  opts.Results,
		catalog:  opts.Catalog,
		enqueuer: opts.Enqueuer,
		tallier:  opts.Tallier,
		priority: opts.ValidatePriority,
		logger:   logger.With("component", "expander"),
	}, nil
}

// ValidateDedupeKey keeps at most one live validate_file task per result.
func ValidateDedupeKey(resultID int64) string {
	return fmt.Sprintf("validate_file:%d", resultID)
}

// Expand selects the files of each add-on, seeds their results and enqueues a
// validation per incomplete result. Re-running it for the same add-ons is safe.
func (e *Expander) Expand(ctx context.Context, jobID int64, addonIDs []int64) (ExpandSummary, error) {
	var sum ExpandSummary
	job, err := e.jobs.GetByID(ctx, jobID)
	if err != nil {
		return sum, fmt.Errorf("expand job %d: %w", jobID, err)
	}

	for _, addonID := range addonIDs {
		seeded, enqueued, err := e.expandAddon(ctx, job, addonID)
		switch {
		case errors.Is(err, model.ErrAddonNotFound):
			e.logger.WarnContext(ctx, "skipping missing addon", "job_id", jobID, "addon_id", addonID)
			sum.Skipped++
			continue
		case err != nil:
			return sum, err
		}
		sum.Addons++
		sum.Results += seeded
		sum.Enqueued += enqueued
	}

	e.logger.InfoContext(ctx, "expanded addons",
		"job_id", jobID, "addons", sum.Addons, "skipped", sum.Skipped,
		"results", sum.Results, "enqueued", sum.Enqueued)
	return sum, nil
}

func (e *Expander) expandAddon(ctx context.Context, job *model.ValidationJob, addonID int64) (int, int, error) {
	if _, err := e.catalog.GetAddon(ctx, addonID); err != nil {
		return 0, 0, err
	}
	candidates, err := e.catalog.ListCandidateFiles(ctx, core.CandidateQuery{
		AddonID:          addonID,
		ApplicationID:    job.ApplicationID,
		CurrMaxVersionID: job.CurrMaxVersion.ID,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("list candidates for addon %d: %w", addonID, err)
	}

	sel := selection.Apply(candidates)
	e.logger.DebugContext(ctx, "selected files",
		"job_id", job.ID, "addon_id", addonID, "rule", sel.Rule, "anchor_version_id", sel.Anchor,
		"files", len(sel.FileIDs))
	if len(sel.FileIDs) == 0 {
		return 0, 0, nil
	}

	results, err := e.results.Seed(ctx, job.ID, sel.FileIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("seed results for addon %d: %w", addonID, err)
	}

	enqueued := 0
	for _, r := range results {
		if r.IsCompleted() {
			continue
		}
		if _, err := e.enqueuer.Enqueue(ctx, model.TaskTypeValidateFile,
			model.ValidateFilePayload{ResultID: r.ID},
			core.EnqueueOptions{Priority: e.priority, DedupeKey: ValidateDedupeKey(r.ID)},
		); err != nil {
			return len(results), enqueued, fmt.Errorf("enqueue validation of result %d: %w", r.ID, err)
		}
		enqueued++
	}
	return len(results), enqueued, nil
}

// ExpandChunk expands one chunk of a job, records the chunk as done and tallies
// the job once no chunk is left. A job whose chunks select no files completes here.
func (e *Expander) ExpandChunk(ctx context.Context, jobID int64, chunk int, addonIDs []int64) (ExpandSummary, error) {
	sum, err := e.Expand(ctx, jobID, addonIDs)
	if err != nil {
		return sum, err
	}
	pending, err := e.jobs.MarkChunkExpanded(ctx, jobID, chunk)
	if err != nil {
		return sum, fmt.Errorf("mark chunk %d of job %d expanded: %w", chunk, jobID, err)
	}
	if pending > 0 {
		e.logger.DebugContext(ctx, "chunks still expanding", "job_id", jobID, "chunk", chunk, "pending", pending)
		return sum, nil
	}
	if _, err := e.tallier.Tally(ctx, jobID); err != nil {
		return sum, err
	}
	return sum, nil
}

// Handle runs an expand task.
func (e *Expander) Handle(ctx context.Context, task *model.Task) (model.AttemptResult, error) {
	p, err := core.DecodePayload[model.ExpandPayload](task)
	if err != nil {
		return model.AttemptResult{}, fmt.Errorf("decode expand payload: %w", err)
	}
	if _, err := e.ExpandChunk(ctx, p.JobID, p.Chunk, p.AddonIDs); err != nil {
		return model.AttemptResult{}, err
	}
	return model.AttemptResult{Status: model.AttemptSucceeded}, nil
}

var _ core.TaskHandler = (*Expander)(nil)
