package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/target/mmk-bulkval/config"
	"github.com/target/mmk-bulkval/internal/adapters/mailer"
	"github.com/target/mmk-bulkval/internal/adapters/reaper"
	"github.com/target/mmk-bulkval/internal/bootstrap"
	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/devseed"
	"github.com/target/mmk-bulkval/internal/domain/model"
	"github.com/target/mmk-bulkval/internal/service"
)

type jobAPI interface {
	Create(ctx context.Context, req *model.CreateValidationJobRequest) (*model.ValidationJob, error)
	Status(ctx context.Context, jobID int64, errLimit int) (*service.JobStatus, error)
}

type taskStatter interface {
	Stats(ctx context.Context, taskType model.TaskType) (*model.TaskStats, error)
}

type previewLister interface {
	List(ctx context.Context, topic string) ([]*model.EmailPreview, error)
}

// adminServices is what the commands need from the running system.
type adminServices struct {
	Jobs     jobAPI
	Tasks    taskStatter
	Enqueuer core.TaskEnqueuer
	Previews previewLister
	Migrate  func(ctx context.Context) error
	Sweep    func(ctx context.Context) error
	Seed     func(ctx context.Context) (*devseed.Result, error)
	Close    func()
}

type opener func(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*adminServices, error)

type commandContext struct {
	open opener

	configOnce sync.Once
	config     *config.AppConfig
	configErr  error

	logger *slog.Logger
}

func (c *commandContext) ensureConfig() (*config.AppConfig, error) {
	c.configOnce.Do(func() {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			c.configErr = err
			return
		}
		c.config = &cfg
	})
	return c.config, c.configErr
}

// withServices opens the system, hands it to fn and closes it again.
func (c *commandContext) withServices(cmd *cobra.Command, fn func(*adminServices) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	svcs, err := c.open(cmd.Context(), cfg, c.logger)
	if err != nil {
		return err
	}
	if svcs.Close != nil {
		defer svcs.Close()
	}
	return fn(svcs)
}

func newRootCommand(open opener, logOut io.Writer) *cobra.Command {
	ctx := &commandContext{open: open}
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "mmk-bulkval-admin",
		Short:         "Administer bulk compatibility validation jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ctx.logger = bootstrap.SetupLogger(logOut, cfg.IsDev || verbose)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newCreateJobCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newNotifySuccessCommand(ctx))
	rootCmd.AddCommand(newNotifyFailedCommand(ctx))
	rootCmd.AddCommand(newPreviewsCommand(ctx))
	rootCmd.AddCommand(newTaskStatsCommand(ctx))
	rootCmd.AddCommand(newReapCommand(ctx))
	rootCmd.AddCommand(newSeedCommand(ctx))

	return rootCmd
}

// openServices connects to Postgres and Redis and wires the services the commands use.
func openServices(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*adminServices, error) {
	dbCfg := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}
	db, err := bootstrap.ConnectDB(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	rdb, err := bootstrap.ConnectRedis(dbCfg)
	if err != nil {
		logger.WarnContext(ctx, "redis unavailable; progress is read from postgres", "error", err)
		rdb = nil
	}
	closeAll := func() {
		if rdb != nil {
			if cerr := rdb.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}
		if cerr := db.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close database failed", "error", cerr)
		}
	}

	svcs, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfg,
		DB:          db,
		RedisClient: rdb,
		Logger:      logger,
		// The CLI only enqueues; mail is sent by the taskrunner.
		Mailer: mailer.NewLogMailer(logger),
	})
	if err != nil {
		closeAll()
		return nil, err
	}
	sweeper, err := reaper.NewRunner(reaper.RunnerOptions{Repo: svcs.Reaper, Config: cfg.Reaper, Logger: logger})
	if err != nil {
		closeAll()
		return nil, err
	}

	return &adminServices{
		Jobs:     svcs.Jobs,
		Tasks:    svcs.Tasks,
		Enqueuer: svcs.Enqueuer,
		Previews: svcs.Previews,
		Migrate: func(ctx context.Context) error {
			return bootstrap.RunMigrations(ctx, db, logger)
		},
		Sweep: sweeper.SweepOnce,
		Seed: func(ctx context.Context) (*devseed.Result, error) {
			if err := bootstrap.RunMigrations(ctx, db, logger); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
			return devseed.Run(ctx, db, logger)
		},
		Close: func() {
			svcs.Tasks.StopAllListeners()
			closeAll()
		},
	}, nil
}
