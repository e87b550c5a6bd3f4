package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeTaskRunner runs the worker pools for every task type.
	ServiceModeTaskRunner ServiceMode = "taskrunner"
	// ServiceModeReaper runs the task reaper for cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeTaskRunner,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for part := range strings.SplitSeq(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeTaskRunner, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: taskrunner, reaper)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// RunnerConfig tunes the worker pool of one task type.
// Zero values fall back to per-type defaults.
type RunnerConfig struct {
	Concurrency int           `env:"CONCURRENCY"`
	Lease       time.Duration `env:"LEASE"`
	MaxRetries  int           `env:"MAX_RETRIES"`
	Priority    int           `env:"PRIORITY"`
}

func (r *RunnerConfig) sanitize(fallback RunnerConfig) {
	if r.Concurrency < 1 {
		r.Concurrency = fallback.Concurrency
	}
	if r.Lease < 5*time.Second {
		r.Lease = fallback.Lease
	}
	if r.MaxRetries < 1 {
		r.MaxRetries = fallback.MaxRetries
	}
	if r.Priority <= 0 {
		r.Priority = fallback.Priority
	}
}

// RunnersConfig contains the task runner configuration for every task type.
type RunnersConfig struct {
	Expand   RunnerConfig `envPrefix:"RUNNER_EXPAND_"`
	Validate RunnerConfig `envPrefix:"RUNNER_VALIDATE_"`
	Notify   RunnerConfig `envPrefix:"RUNNER_NOTIFY_"`

	// ValidateRate is the number of validate_file tasks started per second across
	// every process sharing the Redis limiter.
	ValidateRate float64 `env:"VALIDATE_RATE" envDefault:"1"`
	// ValidateBurst only applies to the process-local limiter.
	ValidateBurst int `env:"VALIDATE_BURST" envDefault:"1"`

	// ExpandChunkSize is the number of add-ons per expand task.
	ExpandChunkSize int `env:"EXPAND_CHUNK_SIZE" envDefault:"100"`

	// HeartbeatFraction of the lease between heartbeats.
	HeartbeatFraction float64 `env:"RUNNER_HEARTBEAT_FRACTION" envDefault:"0.5"`
}

// Defaults per task type, used when a value is unset or out of range.
var (
	defaultExpandRunner   = RunnerConfig{Concurrency: 2, Lease: 2 * time.Minute, MaxRetries: 3, Priority: 10}
	defaultValidateRunner = RunnerConfig{Concurrency: 4, Lease: 5 * time.Minute, MaxRetries: 3, Priority: 0}
	defaultNotifyRunner   = RunnerConfig{Concurrency: 1, Lease: 10 * time.Minute, MaxRetries: 3, Priority: 5}
)

// Sanitize applies guardrails to runner configuration values.
func (r *RunnersConfig) Sanitize() {
	r.Expand.sanitize(defaultExpandRunner)
	r.Validate.sanitize(defaultValidateRunner)
	r.Notify.sanitize(defaultNotifyRunner)
	if r.ValidateRate <= 0 {
		r.ValidateRate = 1
	}
	if r.ValidateBurst < 1 {
		r.ValidateBurst = 1
	}
	if r.ExpandChunkSize < 1 {
		r.ExpandChunkSize = 100
	}
	if r.HeartbeatFraction <= 0 || r.HeartbeatFraction >= 1 {
		r.HeartbeatFraction = 0.5
	}
}

// ReaperConfig contains task reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// PendingMaxAge is the maximum age for pending tasks before they are marked as failed.
	// Large jobs queue validations for a long time, so this is measured in days.
	PendingMaxAge time.Duration `env:"REAPER_PENDING_MAX_AGE" envDefault:"168h"`

	// CompletedMaxAge is the maximum age for completed tasks before deletion.
	CompletedMaxAge time.Duration `env:"REAPER_COMPLETED_MAX_AGE" envDefault:"72h"`

	// FailedMaxAge is the maximum age for failed tasks before deletion.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"336h"`

	// BatchSize is the maximum number of rows to process per operation.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.PendingMaxAge < 1*time.Hour {
		r.PendingMaxAge = 1 * time.Hour
	}
	if r.CompletedMaxAge < 1*time.Hour {
		r.CompletedMaxAge = 1 * time.Hour
	}
	if r.FailedMaxAge < 1*time.Hour {
		r.FailedMaxAge = 1 * time.Hour
	}
	r.BatchSize = min(max(r.BatchSize, 1), 10000)
}
