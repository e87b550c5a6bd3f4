package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-bulkval/config"
	"github.com/target/mmk-bulkval/internal/adapters/mailer"
	"github.com/target/mmk-bulkval/internal/adapters/ratelimit"
	"github.com/target/mmk-bulkval/internal/adapters/reaper"
	"github.com/target/mmk-bulkval/internal/adapters/taskrunner"
	"github.com/target/mmk-bulkval/internal/adapters/validator"
	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/data"
	"github.com/target/mmk-bulkval/internal/domain/model"
	"github.com/target/mmk-bulkval/internal/observability/notify/pagerduty"
	"github.com/target/mmk-bulkval/internal/observability/notify/slack"
	"github.com/target/mmk-bulkval/internal/observability/statsd"
	"github.com/target/mmk-bulkval/internal/service"
	"github.com/target/mmk-bulkval/internal/service/failurenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Tasks *service.TaskService
	// Enqueuer is Tasks with per-type retry budgets applied.
	Enqueuer core.TaskEnqueuer
	Jobs     *service.ValidationJobService
	Notifier *service.OutcomeNotifier
	Previews *mailer.PreviewStore
	Reaper   core.ReaperRepository

	// Handlers maps every task type to the handler its runner drives.
	Handlers map[model.TaskType]core.TaskHandler
	// Limiter throttles validate_file tasks.
	Limiter core.RateLimiter

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// Sink returns the metrics sink, or nil when metrics are disabled.
//
//nolint:ireturn // callers take the interface so a disabled client stays a nil interface.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger

	// Mailer and Validator replace the configured adapters when set.
	Mailer    core.Mailer
	Validator core.Validator
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Tasks    *data.TaskRepo
	Jobs     *data.ValidationJobRepo
	Results  *data.ValidationResultRepo
	Catalog  *data.CatalogRepo
	Audit    *data.AuditRepo
	Previews *data.EmailPreviewRepo
	// Cache is nil when Redis is disabled.
	Cache *data.RedisCacheRepo
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, rdb redis.UniversalClient, logger *slog.Logger) *serviceRepositories {
	repos := &serviceRepositories{
		Tasks:    data.NewTaskRepo(db, data.TaskRepoConfig{Logger: logger}),
		Jobs:     data.NewValidationJobRepo(db, nil),
		Results:  data.NewValidationResultRepo(db, nil),
		Catalog:  data.NewCatalogRepo(db),
		Audit:    data.NewAuditRepo(db, nil),
		Previews: data.NewEmailPreviewRepo(db, nil),
	}
	if rdb != nil {
		repos.Cache = data.NewRedisCacheRepo(rdb)
	}
	return repos
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg *config.AppConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Observability.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Observability.Metrics.StatsdAddress,
			Prefix:  cfg.Observability.Metrics.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Observability.Metrics,
		FailureNotifier: buildFailureNotifier(obsLogger, cfg.Observability.Notifications, cfg.Notify.SiteURL),
		NotifierConfig:  cfg.Observability.Notifications,
	}
}

// buildFailureNotifier registers the Slack and PagerDuty sinks that are enabled.
func buildFailureNotifier(
	logger *slog.Logger,
	cfg config.ObservabilityNotificationsConfig,
	siteURL string,
) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}
	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{Logger: baseLogger})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		prefix := cfg.Slack.SiteURLPrefix
		if prefix == "" {
			prefix = siteURL
		}
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
			AdminURL:   service.Links{SiteURL: prefix}.Admin(),
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{Logger: baseLogger, Sinks: sinks})
}

// buildMailer picks the log mailer in dev or when configured, SMTP otherwise.
//
//nolint:ireturn // the backend is chosen at runtime.
func buildMailer(cfg *config.AppConfig, logger *slog.Logger) (core.Mailer, error) {
	if cfg.IsDev || cfg.Mail.Backend == config.MailBackendLog {
		return mailer.NewLogMailer(logger), nil
	}
	m, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		StartTLS: cfg.Mail.StartTLS,
		Timeout:  cfg.Mail.Timeout,
		Retries:  cfg.Mail.Retries,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create smtp mailer: %w", err)
	}
	return m, nil
}

func buildValidator(cfg config.ValidatorConfig, logger *slog.Logger) (*validator.CommandValidator, error) {
	v, err := validator.NewCommandValidator(validator.Options{
		Command: cfg.Command,
		Args:    cfg.Args,
		Timeout: cfg.Timeout,
		Expressions: validator.Expressions{
			Errors:   cfg.ErrorsExpr,
			Warnings: cfg.WarningsExpr,
			Notices:  cfg.NoticesExpr,
			Messages: cfg.MessagesExpr,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}
	return v, nil
}

// windowForRate expresses a per-second rate as a count per fixed window.
func windowForRate(perSecond float64) (int, time.Duration) {
	if perSecond >= 1 {
		return int(perSecond), time.Second
	}
	return 1, time.Duration(float64(time.Second) / perSecond)
}

// buildLimiter shares the validate rate across processes through Redis when it is
// available and falls back to a process-local limiter.
//
//nolint:ireturn // the limiter is chosen at runtime.
func buildLimiter(cfg config.RunnersConfig, cache core.CacheRepository, logger *slog.Logger) (core.RateLimiter, error) {
	local := ratelimit.NewLocalLimiter(cfg.ValidateRate, cfg.ValidateBurst)
	if cache == nil {
		return local, nil
	}
	limit, window := windowForRate(cfg.ValidateRate)
	l, err := ratelimit.NewRedisLimiter(ratelimit.RedisOptions{
		Cache:    cache,
		Name:     string(model.TaskTypeValidateFile),
		Limit:    limit,
		Window:   window,
		Fallback: local,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis limiter: %w", err)
	}
	return l, nil
}

// runnerConfig returns the pool settings of a task type.
func runnerConfig(cfg config.RunnersConfig, taskType model.TaskType) config.RunnerConfig {
	switch taskType {
	case model.TaskTypeExpand:
		return cfg.Expand
	case model.TaskTypeValidateFile:
		return cfg.Validate
	default:
		return cfg.Notify
	}
}

// retryingEnqueuer applies the configured retry budget of each task type to
// enqueues that leave MaxRetries unset.
type retryingEnqueuer struct {
	next    core.TaskEnqueuer
	runners config.RunnersConfig
}

func (e retryingEnqueuer) Enqueue(
	ctx context.Context,
	taskType model.TaskType,
	payload any,
	opts core.EnqueueOptions,
) (*model.Task, error) {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = runnerConfig(e.runners, taskType).MaxRetries
	}
	return e.next.Enqueue(ctx, taskType, payload, opts)
}

// NewServices wires every service of the process.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return ServiceContainer{}, errors.New("config and database are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repos := buildRepositories(deps.DB, deps.RedisClient, logger)
	obs := buildObservability(logger, cfg)

	maxLease := max(cfg.Runners.Expand.Lease, cfg.Runners.Validate.Lease, cfg.Runners.Notify.Lease)
	tasks, err := service.NewTaskService(service.TaskServiceOptions{
		Repo:            repos.Tasks,
		DefaultLease:    min(30*time.Second, maxLease),
		MaxLease:        maxLease,
		Logger:          logger,
		FailureNotifier: obs.FailureNotifier,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create task service: %w", err)
	}
	enqueuer := retryingEnqueuer{next: tasks, runners: cfg.Runners}

	mail := deps.Mailer
	if mail == nil {
		if mail, err = buildMailer(cfg, logger); err != nil {
			return ServiceContainer{}, err
		}
	}
	check := deps.Validator
	if check == nil {
		v, vErr := buildValidator(cfg.Validator, logger)
		if vErr != nil {
			return ServiceContainer{}, vErr
		}
		check = v
	}

	var (
		progress core.ProgressCache
		cache    core.CacheRepository
	)
	if repos.Cache != nil {
		cache = repos.Cache
		progress = data.NewProgressCache(repos.Cache, 0, 0)
	}
	limiter, err := buildLimiter(cfg.Runners, cache, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	links := service.Links{SiteURL: cfg.Notify.SiteURL}

	jobs, err := service.NewValidationJobService(service.ValidationJobServiceOptions{
		Jobs:           repos.Jobs,
		Results:        repos.Results,
		Catalog:        repos.Catalog,
		Enqueuer:       enqueuer,
		Progress:       progress,
		ChunkSize:      cfg.Runners.ExpandChunkSize,
		ExpandPriority: cfg.Runners.Expand.Priority,
		Logger:         logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create validation job service: %w", err)
	}

	tallier, err := service.NewTallier(service.TallierOptions{
		Jobs:      repos.Jobs,
		Results:   repos.Results,
		Mailer:    mail,
		Links:     links,
		FromEmail: cfg.Mail.FromEmail,
		Metrics:   obs.Sink(),
		Logger:    logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create tallier: %w", err)
	}

	expander, err := service.NewExpander(service.ExpanderOptions{
		Jobs:             repos.Jobs,
		Results:          repos.Results,
		Catalog:          repos.Catalog,
		Enqueuer:         enqueuer,
		Tallier:          tallier,
		ValidatePriority: cfg.Runners.Validate.Priority,
		Logger:           logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create expander: %w", err)
	}

	worker, err := service.NewValidationWorker(service.ValidationWorkerOptions{
		Results:   repos.Results,
		Validator: check,
		Tallier:   tallier,
		Logger:    logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create validation worker: %w", err)
	}

	previews := mailer.NewPreviewStore(repos.Previews)
	notifier, err := service.NewOutcomeNotifier(service.OutcomeNotifierOptions{
		Jobs:      repos.Jobs,
		Results:   repos.Results,
		Catalog:   repos.Catalog,
		Mailer:    mail,
		Previews:  previews,
		Audit:     repos.Audit,
		Links:     links,
		FromEmail: cfg.Mail.FromEmail,
		DefaultActor: model.Actor{
			UserID: cfg.Notify.TaskUserID,
			Name:   cfg.Notify.TaskUser,
		},
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create outcome notifier: %w", err)
	}

	return ServiceContainer{
		Tasks:    tasks,
		Enqueuer: enqueuer,
		Jobs:     jobs,
		Notifier: notifier,
		Previews: previews,
		Reaper:   repos.Tasks,
		Handlers: map[model.TaskType]core.TaskHandler{
			model.TaskTypeExpand:        expander,
			model.TaskTypeValidateFile:  worker,
			model.TaskTypeNotifySuccess: notifier.SuccessHandler(),
			model.TaskTypeNotifyFailed:  notifier.FailedHandler(),
		},
		Limiter:       limiter,
		Observability: obs,
	}, nil
}

// ServiceOrchestrationConfig contains dependencies for running the enabled services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
const shutdownWaitTimeout = 15 * time.Second

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func newTaskRunnerBackgroundService(
	cfg *ServiceOrchestrationConfig,
	taskType model.TaskType,
	logger *slog.Logger,
) (backgroundService, error) {
	handler, ok := cfg.Services.Handlers[taskType]
	if !ok {
		return backgroundService{}, fmt.Errorf("no handler for task type %s", taskType)
	}
	rc := runnerConfig(cfg.Config.Runners, taskType)
	opts := taskrunner.RunnerOptions{
		Queue:             cfg.Services.Tasks,
		Handler:           handler,
		Type:              taskType,
		Lease:             rc.Lease,
		Concurrency:       rc.Concurrency,
		HeartbeatFraction: cfg.Config.Runners.HeartbeatFraction,
		Metrics:           cfg.Services.Observability.Sink(),
		Logger:            logger,
	}
	if taskType == model.TaskTypeValidateFile {
		opts.Limiter = cfg.Services.Limiter
	}
	runner, err := taskrunner.NewRunner(opts)
	if err != nil {
		return backgroundService{}, fmt.Errorf("create %s runner: %w", taskType, err)
	}
	return backgroundService{
		mode:  config.ServiceModeTaskRunner,
		name:  string(taskType) + " runner",
		start: runner.Run,
	}, nil
}

func newReaperBackgroundService(cfg *ServiceOrchestrationConfig, logger *slog.Logger) (backgroundService, error) {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		Repo:    cfg.Services.Reaper,
		Config:  cfg.Config.Reaper,
		Logger:  logger,
		Metrics: cfg.Services.Observability.Sink(),
	})
	if err != nil {
		return backgroundService{}, fmt.Errorf("create reaper runner: %w", err)
	}
	return backgroundService{mode: config.ServiceModeReaper, name: "reaper", start: runner.Run}, nil
}

func buildBackgroundServices(
	cfg *ServiceOrchestrationConfig,
	enabled map[config.ServiceMode]bool,
	logger *slog.Logger,
) ([]backgroundService, error) {
	var services []backgroundService
	if enabled[config.ServiceModeTaskRunner] {
		for _, taskType := range model.AllTaskTypes() {
			svc, err := newTaskRunnerBackgroundService(cfg, taskType, logger)
			if err != nil {
				return nil, err
			}
			services = append(services, svc)
		}
	}
	if enabled[config.ServiceModeReaper] {
		svc, err := newReaperBackgroundService(cfg, logger)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, nil
}

// RunServicesWithShutdown runs the enabled services until SIGINT or SIGTERM.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunServices(ctx, cfg)
}

// RunServices starts all enabled services and blocks until ctx is cancelled or one
// of them fails, which stops the rest.
func RunServices(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	services, err := buildBackgroundServices(cfg, enabled, logger)
	if err != nil {
		return err
	}
	if cfg.Services.Tasks != nil {
		defer cfg.Services.Tasks.StopAllListeners()
	}
	return runBackground(ctx, logger, services)
}

// runBackground runs services in an errgroup and waits up to shutdownWaitTimeout
// for them after cancellation.
func runBackground(ctx context.Context, logger *slog.Logger, services []backgroundService) error {
	if len(services) == 0 {
		return errors.New("no services enabled")
	}
	g, gctx := errgroup.WithContext(ctx)
	names := make([]string, 0, len(services))
	for _, svc := range services {
		names = append(names, svc.name)
		g.Go(func() error {
			if err := svc.start(gctx); err != nil {
				return fmt.Errorf("%s failed: %w", svc.name, err)
			}
			logger.InfoContext(gctx, svc.name+" stopped")
			return nil
		})
		logger.InfoContext(ctx, "background service started", "service", svc.name, "mode", svc.mode)
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-gctx.Done():
	}

	logger.InfoContext(ctx, "shutting down services...", "services", strings.Join(names, ","))
	timer := time.NewTimer(shutdownWaitTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		logger.WarnContext(ctx, "timeout waiting for services to stop")
		return errors.New("timed out waiting for services to stop")
	}
}
