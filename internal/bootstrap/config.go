package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/mmk-bulkval/config"
)

// InitLogger returns the JSON logger used until configuration is loaded.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	return logger
}

// SetupLogger installs the process logger: text at debug level in dev, JSON otherwise.
func SetupLogger(w io.Writer, isDev bool) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	var handler slog.Handler
	if isDev {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(w, nil)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// LoadConfig reads an optional .env file, parses the environment and sanitises the result.
func LoadConfig() (config.AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return config.AppConfig{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig checks that the requested services can start.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("invalid SERVICES: %w", err)
	}
	if enabled[config.ServiceModeTaskRunner] {
		if cfg.Validator.Command == "" {
			return errors.New("VALIDATOR_COMMAND is required when the taskrunner is enabled")
		}
		if !cfg.IsDev && cfg.Mail.Backend == config.MailBackendSMTP && cfg.Mail.Host == "" {
			return errors.New("SMTP_HOST is required for the smtp mail backend")
		}
	}
	return nil
}

// GetEnabledServices lists enabled service names in a stable order for logging.
func GetEnabledServices(cfg *config.AppConfig) []string {
	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return nil
	}
	var names []string
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			names = append(names, string(mode))
		}
	}
	return names
}
