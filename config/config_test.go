package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - taskrunner",
			input:    "taskrunner",
			expected: map[ServiceMode]bool{ServiceModeTaskRunner: true},
		},
		{
			name:     "both services with spaces",
			input:    " taskrunner , reaper ",
			expected: map[ServiceMode]bool{ServiceModeTaskRunner: true, ServiceModeReaper: true},
		},
		{
			name:     "duplicate services",
			input:    "reaper,reaper",
			expected: map[ServiceMode]bool{ServiceModeReaper: true},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       ",,",
			expectError: true,
		},
		{
			name:        "unknown service",
			input:       "taskrunner,http",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}
			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	cfg := AppConfig{Services: "reaper"}
	if cfg.IsTaskRunnerEnabled() {
		t.Error("IsTaskRunnerEnabled(): expected false")
	}
	if !cfg.IsReaperEnabled() {
		t.Error("IsReaperEnabled(): expected true")
	}

	cfg = AppConfig{Services: "invalid-service"}
	if cfg.IsTaskRunnerEnabled() || cfg.IsReaperEnabled() {
		t.Error("expected every service disabled for an invalid configuration")
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Postgres.Name != "mmk_bulkval" {
		t.Errorf("expected default database name, got %q", cfg.Postgres.Name)
	}
	if !cfg.IsTaskRunnerEnabled() || !cfg.IsReaperEnabled() {
		t.Errorf("expected taskrunner and reaper enabled by default, got %q", cfg.Services)
	}
	if cfg.Runners.ExpandChunkSize != 100 {
		t.Errorf("expected expand chunk size 100, got %d", cfg.Runners.ExpandChunkSize)
	}
	if cfg.Runners.ValidateRate != 1 {
		t.Errorf("expected validate rate 1/s, got %v", cfg.Runners.ValidateRate)
	}
	if cfg.Runners.Validate != defaultValidateRunner {
		t.Errorf("expected validate runner defaults, got %+v", cfg.Runners.Validate)
	}
	if cfg.Mail.Backend != MailBackendSMTP {
		t.Errorf("expected smtp backend, got %q", cfg.Mail.Backend)
	}
	if cfg.Notify.TaskUserID <= 0 {
		t.Errorf("expected a default task user id, got %d", cfg.Notify.TaskUserID)
	}
}

func TestAppConfig_ParseRunnerEnv(t *testing.T) {
	t.Setenv("RUNNER_VALIDATE_CONCURRENCY", "12")
	t.Setenv("RUNNER_VALIDATE_LEASE", "90s")
	t.Setenv("RUNNER_EXPAND_LEASE", "1s")
	t.Setenv("VALIDATE_RATE", "0")
	t.Setenv("EXPAND_CHUNK_SIZE", "25")
	t.Setenv("SITE_URL", "https://addons.example.org/ ")
	t.Setenv("VALIDATOR_ARGS", "--json --quiet")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Runners.Validate.Concurrency != 12 || cfg.Runners.Validate.Lease != 90*time.Second {
		t.Errorf("unexpected validate runner: %+v", cfg.Runners.Validate)
	}
	if cfg.Runners.Expand.Lease != defaultExpandRunner.Lease {
		t.Errorf("expected a too-short lease to fall back, got %v", cfg.Runners.Expand.Lease)
	}
	if cfg.Runners.ValidateRate != 1 {
		t.Errorf("expected rate to be clamped to 1, got %v", cfg.Runners.ValidateRate)
	}
	if cfg.Runners.ExpandChunkSize != 25 {
		t.Errorf("expected chunk size 25, got %d", cfg.Runners.ExpandChunkSize)
	}
	if cfg.Notify.SiteURL != "https://addons.example.org" {
		t.Errorf("expected trimmed site url, got %q", cfg.Notify.SiteURL)
	}
	if len(cfg.Validator.Args) != 2 || cfg.Validator.Args[0] != "--json" {
		t.Errorf("unexpected validator args: %q", cfg.Validator.Args)
	}
}

func TestReaperConfig_Sanitize(t *testing.T) {
	cfg := ReaperConfig{BatchSize: 50000}
	cfg.Sanitize()

	if cfg.Interval != time.Minute {
		t.Errorf("expected interval floor of 1m, got %v", cfg.Interval)
	}
	if cfg.PendingMaxAge != time.Hour || cfg.CompletedMaxAge != time.Hour || cfg.FailedMaxAge != time.Hour {
		t.Errorf("expected max age floors of 1h, got %+v", cfg)
	}
	if cfg.BatchSize != 10000 {
		t.Errorf("expected batch size ceiling, got %d", cfg.BatchSize)
	}
}

func TestRedisConfig_Sanitize(t *testing.T) {
	cfg := RedisConfig{Enabled: true, URI: " ", UseSentinel: true, SentinelNodes: []string{" ", ""}}
	cfg.Sanitize()

	if cfg.UseSentinel {
		t.Error("expected sentinel mode off without nodes")
	}
	if cfg.Enabled {
		t.Error("expected redis disabled without an address")
	}
}

func TestMailConfig_Sanitize(t *testing.T) {
	cfg := MailConfig{Backend: " LOG ", Port: 0, Retries: -2}
	cfg.Sanitize()

	if cfg.Backend != MailBackendLog {
		t.Errorf("expected log backend, got %q", cfg.Backend)
	}
	if cfg.Port != 25 || cfg.Retries != 0 || cfg.Timeout != 10*time.Second {
		t.Errorf("unexpected sanitized mail config: %+v", cfg)
	}

	cfg = MailConfig{Backend: "carrier-pigeon"}
	cfg.Sanitize()
	if cfg.Backend != MailBackendSMTP {
		t.Errorf("expected unknown backend to fall back to smtp, got %q", cfg.Backend)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
		Prefix:        ".bulkval.",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
	if cfg.Prefix != "bulkval" {
		t.Fatalf("expected prefix dots to be trimmed, got %q", cfg.Prefix)
	}
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		Timeout:    0,
		RetryLimit: -1,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: " ",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: " ",
		},
	}

	cfg.Sanitize()

	if cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.RetryLimit < 0 {
		t.Fatalf("expected retry limit to be clamped to >= 0, got %d", cfg.RetryLimit)
	}
	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled without a webhook url")
	}
	if cfg.Slack.Username != "mmk-bulkval" {
		t.Fatalf("expected slack username default, got %q", cfg.Slack.Username)
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled without a routing key")
	}
	if cfg.PagerDuty.Source != "mmk-bulkval" || cfg.PagerDuty.Component != "taskrunner" {
		t.Fatalf("unexpected pagerduty defaults: %+v", cfg.PagerDuty)
	}

	// Disabled top-level should disable child sinks.
	cfg = ObservabilityNotificationsConfig{
		Enabled: false,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
	}
	cfg.Sanitize()

	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled when top-level notifications disabled")
	}
}
