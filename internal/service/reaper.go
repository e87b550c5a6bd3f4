package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/target/mmk-bulkval/config"
	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
	obserrors "github.com/target/mmk-bulkval/internal/observability/errors"
	"github.com/target/mmk-bulkval/internal/observability/metrics"
	"github.com/target/mmk-bulkval/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository // Required
	Config  config.ReaperConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// ReaperService keeps the task table bounded. It fails pending tasks nobody picked
// up and deletes finished tasks past their retention. Validation jobs and results
// are never touched.
type ReaperService struct {
	repo    core.ReaperRepository
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger.With("component", "reaper_service"),
		metrics: opts.Metrics,
	}, nil
}

// Run sweeps once after a short jitter and then on every interval tick until ctx
// is cancelled. Cancellation is a clean shutdown and returns nil.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)

	if !sleepCtx(ctx, s.jitter()) {
		return nil
	}
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if err := s.Sweep(ctx); err != nil && !isContextCancellation(err) {
			s.logger.ErrorContext(ctx, "reaper sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
		}
	}
}

// jitter is up to a tenth of the interval so replicas started together spread out.
func (s *ReaperService) jitter() time.Duration {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(maxJitter)) //nolint:gosec // scheduling jitter only
}

type reaperStep struct {
	operation string
	run       func(context.Context) (int64, error)
}

// Sweep runs every cleanup step once, draining each in batches. A failing step
// does not stop the others; their errors are joined.
func (s *ReaperService) Sweep(ctx context.Context) error {
	start := time.Now()
	steps := []reaperStep{
		{operation: "fail_pending", run: func(ctx context.Context) (int64, error) {
			return s.repo.FailStalePendingTasks(ctx, s.config.PendingMaxAge, s.config.BatchSize)
		}},
		{operation: "delete_completed", run: s.deleteStep(model.TaskStatusCompleted, s.config.CompletedMaxAge)},
		{operation: "delete_failed", run: s.deleteStep(model.TaskStatusFailed, s.config.FailedMaxAge)},
	}

	var (
		errs  []error
		total int64
	)
	for _, step := range steps {
		n, err := drainBatches(ctx, step.run)
		total += n
		s.emitOperation(step.operation, n, err)
		if n > 0 {
			s.logger.InfoContext(ctx, "reaped tasks", "operation", step.operation, "count", n)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.operation, err))
		}
	}

	err := errors.Join(errs...)
	s.emitSweep(total, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("reaper sweep: %w", err)
	}
	return nil
}

func (s *ReaperService) deleteStep(status model.TaskStatus, maxAge time.Duration) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		return s.repo.DeleteOldTasks(ctx, core.DeleteOldTasksParams{
			Status:    status,
			MaxAge:    maxAge,
			BatchSize: s.config.BatchSize,
		})
	}
}

// drainBatches repeats a batch operation until it affects no rows.
func drainBatches(ctx context.Context, batch func(context.Context) (int64, error)) (int64, error) {
	var total int64
	for {
		n, err := batch(ctx)
		total += n
		if err != nil || n == 0 {
			return total, err
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func (s *ReaperService) emitSweep(total int64, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	tags := map[string]string{"result": resultTag(total, err)}
	if err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	s.metrics.Count("reaper.cleanup", 1, tags)
	s.metrics.Timing("reaper.cleanup_duration", elapsed, metrics.CloneTags(tags))
	if err == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitOperation(operation string, count int64, err error) {
	if s.metrics == nil {
		return
	}
	tags := map[string]string{"operation": operation, "result": resultTag(count, err)}
	if err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	s.metrics.Count("reaper.cleanup_operation", 1, tags)
	if err == nil && count > 0 {
		s.metrics.Count("reaper.tasks_processed", count, metrics.CloneTags(tags))
	}
}

func resultTag(count int64, err error) string {
	switch {
	case err != nil:
		return metrics.ResultError
	case count == 0:
		return metrics.ResultNoop
	default:
		return metrics.ResultSuccess
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
