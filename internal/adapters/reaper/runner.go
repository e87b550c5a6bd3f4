// Package reaper runs the task reaper against the Postgres queue.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/mmk-bulkval/config"
	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/data"
	"github.com/target/mmk-bulkval/internal/observability/statsd"
	"github.com/target/mmk-bulkval/internal/service"
)

// Runner owns a ReaperService and its loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.ReaperConfig
	Logger *slog.Logger

	// Repo replaces the task repository built from DB.
	Repo    core.ReaperRepository
	Metrics statsd.Sink
}

// NewRunner creates a reaper runner. Either DB or Repo must be set.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	repo := opts.Repo
	if repo == nil {
		if opts.DB == nil {
			return nil, errors.New("database connection is required")
		}
		repo = data.NewTaskRepo(opts.DB, data.TaskRepoConfig{Logger: opts.Logger})
	}

	svc, err := service.NewReaperService(service.ReaperServiceOptions{
		Repo:    repo,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}
	return &Runner{reaper: svc, logger: opts.Logger}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}

// SweepOnce runs a single sweep, used by the admin CLI.
func (r *Runner) SweepOnce(ctx context.Context) error {
	return r.reaper.Sweep(ctx)
}
