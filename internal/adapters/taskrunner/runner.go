// Package taskrunner pulls tasks of one type from the queue and runs them through a handler.
package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
	"github.com/target/mmk-bulkval/internal/observability/metrics"
	"github.com/target/mmk-bulkval/internal/observability/statsd"
	"github.com/target/mmk-bulkval/internal/service"
)

// Queue is the part of the task service a runner drives.
type Queue interface {
	ReserveNext(ctx context.Context, taskType model.TaskType, lease time.Duration) (*model.Task, error)
	Subscribe(taskType model.TaskType) (func(), <-chan struct{})
	Heartbeat(ctx context.Context, id string, extend time.Duration) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	FailWithDetails(ctx context.Context, id, errMsg string, details service.FailureDetails) (bool, error)
}

var _ Queue = (*service.TaskService)(nil)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Queue   Queue
	Handler core.TaskHandler
	Type    model.TaskType

	Lease       time.Duration // defaults to 30s
	Concurrency int           // defaults to 1
	// HeartbeatFraction of the lease elapses between heartbeats. Defaults to 0.5.
	HeartbeatFraction float64
	// Limiter, when set, is waited on before each task is handled.
	Limiter core.RateLimiter

	Metrics statsd.Sink
	Logger  *slog.Logger
}

// Runner executes tasks of a single type with a fixed pool of workers.
type Runner struct {
	queue     Queue
	handler   core.TaskHandler
	taskType  model.TaskType
	lease     time.Duration
	heartbeat time.Duration
	workers   int
	limiter   core.RateLimiter
	metrics   statsd.Sink
	logger    *slog.Logger
}

// NewRunner constructs a Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Queue == nil {
		return nil, errors.New("task queue is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("task handler is required")
	}
	if !opts.Type.Valid() {
		return nil, fmt.Errorf("invalid task type %q", opts.Type)
	}

	lease := opts.Lease
	if lease <= 0 {
		lease = 30 * time.Second
	}
	workers := max(opts.Concurrency, 1)
	fraction := opts.HeartbeatFraction
	if fraction <= 0 || fraction >= 1 {
		fraction = 0.5
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		queue:     opts.Queue,
		handler:   opts.Handler,
		taskType:  opts.Type,
		lease:     lease,
		heartbeat: max(time.Duration(float64(lease)*fraction), time.Second),
		workers:   workers,
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "taskrunner", "task_type", opts.Type),
	}, nil
}

// Run starts the workers and blocks until ctx is cancelled or a worker hits a
// queue error. Cancellation is not an error.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting task runner", "workers", r.workers, "lease", r.lease)

	unsub, wake := r.queue.Subscribe(r.taskType)
	defer unsub()

	g, gctx := errgroup.WithContext(ctx)
	for range r.workers {
		g.Go(func() error { return r.workerLoop(gctx, wake) })
	}
	err := g.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (r *Runner) workerLoop(ctx context.Context, wake <-chan struct{}) error {
	for ctx.Err() == nil {
		task, err := r.queue.ReserveNext(ctx, r.taskType, r.lease)
		switch {
		case err == nil:
			r.process(ctx, task)
		case errors.Is(err, model.ErrNoTasksAvailable):
			select {
			case <-ctx.Done():
				return nil
			case _, ok := <-wake:
				if !ok {
					return nil
				}
			}
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("reserve next %s: %w", r.taskType, err)
		}
	}
	return nil
}

func (r *Runner) process(ctx context.Context, task *model.Task) {
	start := time.Now()
	emit := func(transition, result string, err error) {
		metrics.EmitTaskLifecycle(r.metrics, metrics.TaskMetric{
			TaskType:   string(task.Type),
			Transition: transition,
			Result:     result,
			Duration:   time.Since(start),
			Err:        err,
		})
	}
	emit(metrics.TransitionReserved, metrics.ResultSuccess, nil)

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := r.keepAlive(taskCtx, cancel, task.ID)
	res, err := r.run(taskCtx, task)
	stop()

	switch {
	case err != nil:
		r.fail(ctx, task, err.Error(), err)
		emit(metrics.TransitionFailed, metrics.ResultError, err)
	case res.Retryable():
		cause := errors.New(res.Trace)
		r.fail(ctx, task, res.Trace, cause)
		emit(metrics.TransitionFailed, metrics.ResultRetry, cause)
	default:
		completed, cerr := r.queue.Complete(ctx, task.ID)
		switch {
		case cerr != nil:
			r.logger.ErrorContext(ctx, "complete task error", "task_id", task.ID, "error", cerr)
			emit(metrics.TransitionCompleted, metrics.ResultError, cerr)
		case completed:
			emit(metrics.TransitionCompleted, metrics.ResultSuccess, nil)
		default:
			r.logger.WarnContext(ctx, "task lease lost before completion", "task_id", task.ID)
			emit(metrics.TransitionCompleted, metrics.ResultNoop, nil)
		}
	}
}

// run waits for the rate limiter and calls the handler, turning a panic into an error.
func (r *Runner) run(ctx context.Context, task *model.Task) (res model.AttemptResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return model.AttemptResult{}, fmt.Errorf("rate limit: %w", err)
		}
	}
	return r.handler.Handle(ctx, task)
}

// keepAlive extends the lease until the returned func is called. When the lease is
// lost the task context is cancelled.
func (r *Runner) keepAlive(ctx context.Context, cancel context.CancelFunc, id string) func() {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(r.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := r.queue.Heartbeat(ctx, id, r.lease)
				if err != nil {
					r.logger.WarnContext(ctx, "heartbeat failed", "task_id", id, "error", err)
					continue
				}
				if !ok {
					r.logger.WarnContext(ctx, "task lease lost", "task_id", id)
					cancel()
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

func (r *Runner) fail(ctx context.Context, task *model.Task, msg string, cause error) {
	details := service.FailureDetails{
		Err: cause,
		Metadata: map[string]string{
			"component": "taskrunner",
			"attempt":   strconv.Itoa(task.Attempt()),
		},
	}
	if jobID, ok := jobIDOf(task); ok {
		details.JobID = jobID
	}
	if _, err := r.queue.FailWithDetails(ctx, task.ID, msg, details); err != nil {
		r.logger.ErrorContext(ctx, "fail task error", "task_id", task.ID, "error", err, "original_error", msg)
	}
}

// jobIDOf extracts the validation job id from payloads that carry one.
func jobIDOf(task *model.Task) (int64, bool) {
	p, err := core.DecodePayload[struct {
		JobID int64 `json:"job_id"`
	}](task)
	if err != nil || p.JobID <= 0 {
		return 0, false
	}
	return p.JobID, true
}
