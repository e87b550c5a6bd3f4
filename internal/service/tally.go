package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
	"github.com/target/mmk-bulkval/internal/observability/metrics"
	"github.com/target/mmk-bulkval/internal/observability/statsd"
)

// TallyOutcome reports the state observed by one Tally call.
type TallyOutcome struct {
	Total     int
	Completed int
	// JobCompleted is true only for the call that moved the job to completed.
	JobCompleted bool
}

// TallierOptions groups dependencies for Tallier.
type TallierOptions struct {
	Jobs      core.ValidationJobRepository
	Results   core.ValidationResultRepository
	Mailer    core.Mailer
	Links     Links
	FromEmail string
	Metrics   statsd.Sink
	Logger    *slog.Logger
}

// Tallier detects when every result of a job is complete and finishes the job.
type Tallier struct {
	jobs      core.ValidationJobRepository
	results   core.ValidationResultRepository
	mailer    core.Mailer
	links     Links
	fromEmail string
	metrics   statsd.Sink
	logger    *slog.Logger
}

// NewTallier constructs a Tallier.
func NewTallier(opts TallierOptions) (*Tallier, error) {
	if opts.Jobs == nil || opts.Results == nil {
		return nil, errors.New("job and result repositories are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tallier{
		jobs:      opts.Jobs,
		results:   opts.Results,
		mailer:    opts.Mailer,
		links:     opts.Links,
		fromEmail: opts.FromEmail,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "tallier"),
	}, nil
}

// Tally counts the job's results and, once every chunk has expanded and all
// results are complete, marks the job completed. Concurrent calls race on a conditional update so exactly one of them
// sees JobCompleted and sends the operator email.
func (t *Tallier) Tally(ctx context.Context, jobID int64) (TallyOutcome, error) {
	counts, err := t.results.Counts(ctx, jobID)
	if err != nil {
		return TallyOutcome{}, fmt.Errorf("tally job %d: %w", jobID, err)
	}
	out := TallyOutcome{Total: counts.Total, Completed: counts.Completed}
	if !counts.AllCompleted() {
		return out, nil
	}

	won, err := t.jobs.MarkCompleted(ctx, jobID)
	if err != nil {
		return out, fmt.Errorf("mark job %d completed: %w", jobID, err)
	}
	if !won {
		return out, nil
	}
	out.JobCompleted = true

	t.logger.InfoContext(ctx, "validation job completed", "job_id", jobID, "results", counts.Total)
	metrics.EmitJobCompleted(t.metrics, counts.Total)

	if err := t.emailOperator(ctx, jobID); err != nil {
		// The transition already happened and cannot be replayed; the email is lost.
		t.logger.ErrorContext(ctx, "send job completion email", "job_id", jobID, "error", err)
	}
	return out, nil
}

func (t *Tallier) emailOperator(ctx context.Context, jobID int64) error {
	if t.mailer == nil {
		return nil
	}
	job, err := t.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.FinishEmail == nil || strings.TrimSpace(*job.FinishEmail) == "" {
		return nil
	}
	return t.mailer.Send(ctx, CompletionMessage(job, t.links, t.fromEmail))
}

// CompletionMessage builds the operator notification for a finished job.
func CompletionMessage(job *model.ValidationJob, links Links, from string) model.Message {
	subject := fmt.Sprintf("Behold! Validation results for %s %s->%s",
		job.ApplicationName, job.CurrMaxVersion.Version, job.TargetVersion.Version)
	var to []string
	if job.FinishEmail != nil {
		to = []string{*job.FinishEmail}
	}
	return model.Message{
		Subject: subject,
		Body:    "Aww yeah\n" + links.Admin(),
		From:    from,
		To:      to,
	}
}
