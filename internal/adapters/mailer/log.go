package mailer

import (
	"context"
	"log/slog"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

// LogMailer writes messages to the log instead of sending them. Used in dev.
type LogMailer struct {
	logger *slog.Logger
}

var _ core.Mailer = (*LogMailer)(nil)

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger.With("component", "log_mailer")}
}

// Send logs msg.
func (m *LogMailer) Send(ctx context.Context, msg model.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "email",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
