package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

// ValidationWorkerOptions groups dependencies for ValidationWorker.
type ValidationWorkerOptions struct {
	Results   core.ValidationResultRepository
	Validator core.Validator
	Tallier   *Tallier
	Clock     func() time.Time
	Logger    *slog.Logger
}

// ValidationWorker validates the file of a single result.
type ValidationWorker struct {
	results   core.ValidationResultRepository
	validator core.Validator
	tallier   *Tallier
	now       func() time.Time
	logger    *slog.Logger
}

// NewValidationWorker constructs a ValidationWorker.
func NewValidationWorker(opts ValidationWorkerOptions) (*ValidationWorker, error) {
	if opts.Results == nil || opts.Validator == nil || opts.Tallier == nil {
		return nil, errors.New("validation worker requires results, validator and tallier")
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationWorker{
		results:   opts.Results,
		validator: opts.Validator,
		tallier:   opts.Tallier,
		now:       now,
		logger:    logger.With("component", "validation_worker"),
	}, nil
}

// Process runs the validator for one result, stores the outcome or the failure
// trace, then tallies the job. A validator failure is reported as a retryable
// attempt; the error return is reserved for storage failures.
func (w *ValidationWorker) Process(ctx context.Context, resultID int64) (model.AttemptResult, error) {
	target, err := w.results.GetTarget(ctx, resultID)
	if err != nil {
		return model.AttemptResult{}, fmt.Errorf("load result %d: %w", resultID, err)
	}
	res := &target.Result
	name := filepath.Base(target.FilePath)

	report, trace := w.validate(ctx, target)
	now := w.now().UTC()
	attempt := model.AttemptResult{Status: model.AttemptSucceeded}
	if trace != "" {
		res.ApplyTaskError(trace, now)
		attempt = model.AttemptResult{Status: model.AttemptRetryable, Trace: trace}
		w.logger.WarnContext(ctx, "validation failed",
			"result_id", resultID, "job_id", res.JobID, "file", name)
	} else {
		res.ApplyOutcome(report, now)
		w.logger.InfoContext(ctx, "validated file",
			"result_id", resultID, "job_id", res.JobID, "file", name, "errors", *res.Errors)
	}

	if err := w.results.Save(ctx, res); err != nil {
		return attempt, fmt.Errorf("save result %d: %w", resultID, err)
	}
	if _, err := w.tallier.Tally(ctx, res.JobID); err != nil {
		return attempt, err
	}
	return attempt, nil
}

// validate calls the validator, turning an error or panic into a trace.
func (w *ValidationWorker) validate(ctx context.Context, target *model.ResultTarget) (report *model.ValidationReport, trace string) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			trace = fmt.Sprintf("panic: %v\n%s", r, debug.Stack())
		}
	}()

	report, err := w.validator.Validate(ctx, core.ValidateRequest{
		FilePath:   target.FilePath,
		Targets:    map[string][]string{target.ApplicationGUID: {target.TargetVersion}},
		Overrides:  map[string]string{target.ApplicationGUID: target.TargetVersion},
		Exhaustive: true,
	})
	if err != nil {
		return nil, traceOf(err)
	}
	return report, ""
}

// traceOf renders an error and every error it wraps, one per line.
func traceOf(err error) string {
	trace := err.Error()
	for inner := errors.Unwrap(err); inner != nil; inner = errors.Unwrap(inner) {
		trace += "\ncaused by: " + inner.Error()
	}
	return trace
}

// Handle runs a validate_file task.
func (w *ValidationWorker) Handle(ctx context.Context, task *model.Task) (model.AttemptResult, error) {
	p, err := core.DecodePayload[model.ValidateFilePayload](task)
	if err != nil {
		return model.AttemptResult{}, fmt.Errorf("decode validate_file payload: %w", err)
	}
	return w.Process(ctx, p.ResultID)
}

var _ core.TaskHandler = (*ValidationWorker)(nil)
