// Package mailer delivers, logs or captures outbound email.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

// SMTPConfig configures an SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	StartTLS bool
	Timeout  time.Duration
	// Retries is the number of extra attempts after a transient failure.
	Retries int
	Logger  *slog.Logger
}

// SMTPMailer sends each message in its own SMTP session.
type SMTPMailer struct {
	addr    string
	host    string
	auth    smtp.Auth
	tls     bool
	timeout time.Duration
	retries uint64
	backoff time.Duration
	logger  *slog.Logger

	now     func() time.Time
	deliver func(ctx context.Context, from string, to []string, data []byte) error
}

var _ core.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer constructs an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	port := cfg.Port
	if port <= 0 {
		port = 25
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &SMTPMailer{
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		host:    host,
		tls:     cfg.StartTLS,
		timeout: timeout,
		retries: uint64(max(cfg.Retries, 0)), //nolint:gosec // clamped
		backoff: 500 * time.Millisecond,
		logger:  logger.With("component", "smtp_mailer"),
		now:     time.Now,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	m.deliver = m.session
	return m, nil
}

// Send delivers msg, retrying transient failures with Fibonacci backoff.
func (m *SMTPMailer) Send(ctx context.Context, msg model.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	data := Format(msg, m.now())

	attempt := 0
	backoff := retry.WithMaxRetries(m.retries, retry.NewFibonacci(m.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := m.deliver(ctx, msg.From, msg.To, data)
		if err == nil {
			return nil
		}
		if Transient(err) {
			m.logger.WarnContext(ctx, "smtp send failed, retrying", "attempt", attempt, "to", msg.To, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("smtp send to %s: %w", strings.Join(msg.To, ","), err)
	}
	return nil
}

// session runs one SMTP conversation.
func (m *SMTPMailer) session(ctx context.Context, from string, to []string, data []byte) error {
	dialer := &net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", m.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.timeout))
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if m.tls {
		if err := c.StartTLS(&tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if m.auth != nil {
		if err := c.Auth(m.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// Transient reports whether an SMTP failure is worth retrying: 4xx replies and
// network errors are, 5xx replies are not.
func Transient(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code >= 400 && tpErr.Code < 500
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, net.ErrClosed)
}

// Format renders msg as an RFC 5322 message with a plain text UTF-8 body.
func Format(msg model.Message, date time.Time) []byte {
	var b strings.Builder
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	header("From", msg.From)
	header("To", strings.Join(msg.To, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}
