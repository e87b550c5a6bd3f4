// Package validator runs the external add-on validator and reads its JSON report.
package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/jmespath-community/go-jmespath"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

const maxStderr = 4 * 1024

// Expressions are JMESPath queries that pull counts and messages out of a report.
type Expressions struct {
	Errors   string
	Warnings string
	Notices  string
	Messages string
}

// DefaultExpressions match the validator's top-level report fields.
var DefaultExpressions = Expressions{
	Errors:   "errors",
	Warnings: "warnings",
	Notices:  "notices",
	Messages: "messages",
}

// Options configures a CommandValidator.
type Options struct {
	Command     string
	Args        []string
	Timeout     time.Duration
	Expressions Expressions
	Logger      *slog.Logger
}

// CommandValidator runs one validator process per file.
type CommandValidator struct {
	command string
	args    []string
	timeout time.Duration
	exprs   Expressions
	logger  *slog.Logger
}

var _ core.Validator = (*CommandValidator)(nil)

// NewCommandValidator checks the options and compiles the expressions.
func NewCommandValidator(opts Options) (*CommandValidator, error) {
	if strings.TrimSpace(opts.Command) == "" {
		return nil, errors.New("validator command is required")
	}
	exprs := opts.Expressions
	if exprs.Errors == "" {
		exprs.Errors = DefaultExpressions.Errors
	}
	if exprs.Warnings == "" {
		exprs.Warnings = DefaultExpressions.Warnings
	}
	if exprs.Notices == "" {
		exprs.Notices = DefaultExpressions.Notices
	}
	if exprs.Messages == "" {
		exprs.Messages = DefaultExpressions.Messages
	}
	for _, e := range []string{exprs.Errors, exprs.Warnings, exprs.Notices, exprs.Messages} {
		if _, err := jmespath.Compile(e); err != nil {
			return nil, fmt.Errorf("compile expression %q: %w", e, err)
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandValidator{
		command: opts.Command,
		args:    append([]string(nil), opts.Args...),
		timeout: timeout,
		exprs:   exprs,
		logger:  logger.With("component", "validator"),
	}, nil
}

// Args returns the full argument list for one run.
func (v *CommandValidator) Args(req core.ValidateRequest) ([]string, error) {
	args := append([]string(nil), v.args...)
	args = append(args, req.FilePath)
	if len(req.Targets) > 0 {
		b, err := json.Marshal(req.Targets)
		if err != nil {
			return nil, fmt.Errorf("encode targets: %w", err)
		}
		args = append(args, "--for-appversions", string(b))
	}
	if len(req.Overrides) > 0 {
		b, err := json.Marshal(map[string]map[string]string{"targetapp_maxVersion": req.Overrides})
		if err != nil {
			return nil, fmt.Errorf("encode overrides: %w", err)
		}
		args = append(args, "--overrides", string(b))
	}
	if req.Exhaustive {
		args = append(args, "--exhaustive")
	}
	return args, nil
}

// Validate runs the validator on req.FilePath. A timeout, a non-zero exit or an
// unreadable report is an error.
func (v *CommandValidator) Validate(ctx context.Context, req core.ValidateRequest) (*model.ValidationReport, error) {
	if req.FilePath == "" {
		return nil, errors.New("file path is required")
	}
	args, err := v.Args(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, v.command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedBuffer{buf: &stderr, max: maxStderr}
	cmd.WaitDelay = time.Second

	start := time.Now()
	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("validator timed out after %s: %w", v.timeout, ctx.Err())
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("run validator: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("run validator: %w", err)
	}
	v.logger.DebugContext(ctx, "validator finished", "file", req.FilePath, "duration", time.Since(start))

	return v.Parse(stdout.Bytes())
}

// Parse reads a JSON report.
func (v *CommandValidator) Parse(raw []byte) (*model.ValidationReport, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode validator report: %w", err)
	}
	report := &model.ValidationReport{Raw: append(json.RawMessage(nil), raw...)}

	var err error
	if report.Errors, err = count(v.exprs.Errors, doc); err != nil {
		return nil, err
	}
	if report.Warnings, err = count(v.exprs.Warnings, doc); err != nil {
		return nil, err
	}
	if report.Notices, err = count(v.exprs.Notices, doc); err != nil {
		return nil, err
	}
	if report.Messages, err = messages(v.exprs.Messages, doc); err != nil {
		return nil, err
	}
	return report, nil
}

// count evaluates expr to a number. Arrays count their elements; a missing value is zero.
func count(expr string, doc any) (int, error) {
	res, err := jmespath.Search(expr, doc)
	if err != nil {
		return 0, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	switch n := res.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(n), nil
	case []any:
		return len(n), nil
	default:
		return 0, fmt.Errorf("evaluate %q: want a number, got %T", expr, res)
	}
}

func messages(expr string, doc any) ([]model.ValidationMessage, error) {
	res, err := jmespath.Search(expr, doc)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", expr, err)
	}
	if res == nil {
		return nil, nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}
	var out []model.ValidationMessage
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return out, nil
}

// limitedBuffer keeps the first max bytes written and discards the rest.
type limitedBuffer struct {
	buf *bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		b.buf.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}
