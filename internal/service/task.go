package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
	domaintask "github.com/target/mmk-bulkval/internal/domain/task"
	obserrors "github.com/target/mmk-bulkval/internal/observability/errors"
	"github.com/target/mmk-bulkval/internal/observability/notify"
	"github.com/target/mmk-bulkval/internal/service/failurenotifier"
)

// TaskServiceOptions groups dependencies for TaskService.
type TaskServiceOptions struct {
	Repo            core.TaskRepository      // Required: task repository
	DefaultLease    time.Duration            // Required unless LeasePolicy is set
	MaxLease        time.Duration            // Optional: cap on requested leases
	Logger          *slog.Logger             // Optional: structured logger
	FailureNotifier *failurenotifier.Service // Optional: alerts for exhausted tasks
	LeasePolicy     *domaintask.LeasePolicy  // Optional: override lease policy
	Notifier        domaintask.Notifier      // Optional: custom wakeup notifier
	WakeupOptions   domaintask.WakeupOptions // Optional: tune the default notifier
}

// TaskService is the queue facade used by the runners and by every service that
// schedules background work.
type TaskService struct {
	repo            core.TaskRepository
	leasePolicy     *domaintask.LeasePolicy
	notifier        domaintask.Notifier
	logger          *slog.Logger
	failureNotifier *failurenotifier.Service
}

// NewTaskService constructs a TaskService.
func NewTaskService(opts TaskServiceOptions) (*TaskService, error) {
	if opts.Repo == nil {
		return nil, errors.New("TaskRepository is required")
	}

	leasePolicy := opts.LeasePolicy
	if leasePolicy == nil {
		var err error
		leasePolicy, err = domaintask.NewLeasePolicy(opts.DefaultLease, opts.MaxLease)
		if err != nil {
			return nil, fmt.Errorf("create lease policy: %w", err)
		}
	}

	notifier := opts.Notifier
	if notifier == nil {
		wo := opts.WakeupOptions
		if wo.Waiter == nil {
			wo.Waiter = opts.Repo
		}
		w, err := domaintask.NewWakeups(wo)
		if err != nil {
			return nil, fmt.Errorf("create task wakeups: %w", err)
		}
		notifier = w
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskService{
		repo:            opts.Repo,
		leasePolicy:     leasePolicy,
		notifier:        notifier,
		logger:          logger.With("component", "task_service"),
		failureNotifier: opts.FailureNotifier,
	}, nil
}

// Enqueue marshals payload and schedules a task. With a dedupe key an existing live
// task is returned instead of creating another.
func (s *TaskService) Enqueue(
	ctx context.Context,
	taskType model.TaskType,
	payload any,
	opts core.EnqueueOptions,
) (*model.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	task, inserted, err := s.repo.Create(ctx, &model.CreateTaskRequest{
		Type:       taskType,
		Payload:    raw,
		Priority:   opts.Priority,
		DedupeKey:  opts.DedupeKey,
		MaxRetries: opts.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", taskType, err)
	}

	if inserted {
		s.logger.DebugContext(ctx, "task enqueued", "task_id", task.ID, "task_type", taskType)
	} else {
		s.logger.DebugContext(ctx, "task already queued",
			"task_id", task.ID, "task_type", taskType, "dedupe_key", opts.DedupeKey, "status", task.Status)
	}
	return task, nil
}

// ReserveNext leases the next due task of taskType. It returns
// model.ErrNoTasksAvailable (wrapped) when the queue is empty.
func (s *TaskService) ReserveNext(ctx context.Context, taskType model.TaskType, lease time.Duration) (*model.Task, error) {
	l := s.leasePolicy.Resolve(lease)
	if l.Source == domaintask.LeaseClamped {
		s.logger.DebugContext(ctx, "clamped task lease",
			"requested", l.Requested, "seconds", l.Seconds, "task_type", taskType)
	}

	task, err := s.repo.ReserveNext(ctx, taskType, l.Seconds)
	if err != nil {
		return nil, fmt.Errorf("reserve next %s: %w", taskType, err)
	}
	s.logger.DebugContext(ctx, "task reserved",
		"task_id", task.ID, "task_type", taskType, "attempt", task.Attempt(), "lease_seconds", l.Seconds)
	return task, nil
}

// Subscribe returns a wakeup channel for taskType and a func that releases it.
func (s *TaskService) Subscribe(taskType model.TaskType) (func(), <-chan struct{}) {
	return s.notifier.Subscribe(taskType)
}

// WaitForNotification blocks until a task of taskType is enqueued.
func (s *TaskService) WaitForNotification(ctx context.Context, taskType model.TaskType) error {
	return s.repo.WaitForNotification(ctx, taskType)
}

// Heartbeat extends the lease of a running task.
func (s *TaskService) Heartbeat(ctx context.Context, id string, extend time.Duration) (bool, error) {
	l := s.leasePolicy.Resolve(extend)
	ok, err := s.repo.Heartbeat(ctx, id, l.Seconds)
	if err != nil {
		return false, fmt.Errorf("heartbeat task %s: %w", id, err)
	}
	return ok, nil
}

// Complete marks a running task completed.
func (s *TaskService) Complete(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.Complete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("complete task %s: %w", id, err)
	}
	if ok {
		s.logger.DebugContext(ctx, "task completed", "task_id", id)
	}
	return ok, nil
}

// FailureDetails carries optional context for failure alerts.
type FailureDetails struct {
	JobID    int64
	Err      error
	Metadata map[string]string
}

// Fail records a failed attempt with errMsg.
func (s *TaskService) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	return s.FailWithDetails(ctx, id, errMsg, FailureDetails{})
}

// FailWithDetails records a failed attempt. When the attempt exhausts the task's
// retries and a failure notifier is configured, an alert is sent.
func (s *TaskService) FailWithDetails(ctx context.Context, id, errMsg string, details FailureDetails) (bool, error) {
	if errMsg == "" {
		return false, errors.New("error message required")
	}

	var task *model.Task
	if s.failureNotifier.Enabled() {
		var err error
		if task, err = s.repo.GetByID(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "load task for failure alert", "task_id", id, "error", err)
		}
	}

	failed, err := s.repo.Fail(ctx, id, errMsg)
	if err != nil {
		return false, fmt.Errorf("fail task %s: %w", id, err)
	}
	if !failed {
		return false, nil
	}
	s.logger.DebugContext(ctx, "task attempt failed", "task_id", id, "error", errMsg)

	if task != nil && task.RetryCount+1 >= task.MaxRetries {
		s.failureNotifier.NotifyTaskFailure(ctx, failurePayload(task, errMsg, details))
	}
	return true, nil
}

func failurePayload(task *model.Task, errMsg string, details FailureDetails) notify.TaskFailurePayload {
	metadata := map[string]string{
		"attempts":    strconv.Itoa(task.RetryCount + 1),
		"max_retries": strconv.Itoa(task.MaxRetries),
	}
	for k, v := range details.Metadata {
		if k != "" && v != "" {
			metadata[k] = v
		}
	}
	class := obserrors.Classify(details.Err)
	if class == "" {
		class = obserrors.ClassUnknown
	}
	return notify.TaskFailurePayload{
		TaskID:     task.ID,
		TaskType:   string(task.Type),
		JobID:      details.JobID,
		Error:      errMsg,
		ErrorClass: class,
		Severity:   notify.SeverityCritical,
		OccurredAt: time.Now(),
		Metadata:   metadata,
	}
}

// Stats returns task counts by status for taskType.
func (s *TaskService) Stats(ctx context.Context, taskType model.TaskType) (*model.TaskStats, error) {
	stats, err := s.repo.Stats(ctx, taskType)
	if err != nil {
		return nil, fmt.Errorf("task stats for %s: %w", taskType, err)
	}
	return stats, nil
}

// GetByID loads a task.
func (s *TaskService) GetByID(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// Delete removes a task that is not currently leased.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "task deleted", "task_id", id)
	return nil
}

// StopAllListeners stops every wakeup loop.
func (s *TaskService) StopAllListeners() {
	s.notifier.StopAll()
}

var _ core.TaskEnqueuer = (*TaskService)(nil)
