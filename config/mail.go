package config

import (
	"strings"
	"time"
)

// Mail backends.
const (
	MailBackendSMTP = "smtp"
	MailBackendLog  = "log"
)

// MailConfig configures outbound email.
type MailConfig struct {
	// Backend is smtp or log. Dev mode forces log.
	Backend   string        `env:"MAIL_BACKEND"     envDefault:"smtp"`
	Host      string        `env:"SMTP_HOST"        envDefault:"localhost"`
	Port      int           `env:"SMTP_PORT"        envDefault:"25"`
	Username  string        `env:"SMTP_USERNAME"`
	Password  string        `env:"SMTP_PASSWORD"`
	StartTLS  bool          `env:"SMTP_STARTTLS"    envDefault:"false"`
	Timeout   time.Duration `env:"SMTP_TIMEOUT"     envDefault:"10s"`
	Retries   int           `env:"SMTP_RETRIES"     envDefault:"3"`
	FromEmail string        `env:"MAIL_FROM"        envDefault:"nobody@mozilla.org"`
}

// Sanitize normalises the mail backend and clamps timeouts.
func (m *MailConfig) Sanitize() {
	m.Backend = strings.ToLower(strings.TrimSpace(m.Backend))
	if m.Backend != MailBackendLog {
		m.Backend = MailBackendSMTP
	}
	m.Host = strings.TrimSpace(m.Host)
	if m.Port <= 0 || m.Port > 65535 {
		m.Port = 25
	}
	if m.Timeout <= 0 {
		m.Timeout = 10 * time.Second
	}
	if m.Retries < 0 {
		m.Retries = 0
	}
	m.FromEmail = strings.TrimSpace(m.FromEmail)
}

// ValidatorConfig configures the external validator command.
type ValidatorConfig struct {
	Command string        `env:"VALIDATOR_COMMAND" envDefault:"addons-validator"`
	Args    []string      `env:"VALIDATOR_ARGS"    envSeparator:" "`
	Timeout time.Duration `env:"VALIDATOR_TIMEOUT" envDefault:"2m"`

	// JMESPath expressions applied to the validator's JSON report.
	ErrorsExpr   string `env:"VALIDATOR_ERRORS_EXPR"   envDefault:"errors"`
	WarningsExpr string `env:"VALIDATOR_WARNINGS_EXPR" envDefault:"warnings"`
	NoticesExpr  string `env:"VALIDATOR_NOTICES_EXPR"  envDefault:"notices"`
	MessagesExpr string `env:"VALIDATOR_MESSAGES_EXPR" envDefault:"messages"`
}

// Sanitize clamps the validator timeout.
func (v *ValidatorConfig) Sanitize() {
	v.Command = strings.TrimSpace(v.Command)
	if v.Timeout < time.Second {
		v.Timeout = 2 * time.Minute
	}
}

// NotifyConfig configures links and the actor used by notification tasks.
type NotifyConfig struct {
	// SiteURL prefixes every link placed in emails.
	SiteURL string `env:"SITE_URL" envDefault:"https://addons.mozilla.org"`
	// TaskUserID is recorded as the actor of audited changes when a task carries none.
	TaskUserID int64  `env:"TASK_USER_ID" envDefault:"4043307"`
	TaskUser   string `env:"TASK_USER"    envDefault:"task-user"`
}

// Sanitize trims the trailing slash from the site URL.
func (n *NotifyConfig) Sanitize() {
	n.SiteURL = strings.TrimRight(strings.TrimSpace(n.SiteURL), "/")
	if n.TaskUserID < 0 {
		n.TaskUserID = 0
	}
}
