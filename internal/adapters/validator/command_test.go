package validator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-bulkval/internal/core"
	"github.com/target/mmk-bulkval/internal/domain/model"
)

const sampleReport = `{
  "errors": 1,
  "warnings": 2,
  "notices": 0,
  "messages": [
    {"type": "error", "message": "Unsupported API", "file": "chrome/content/main.js", "line": 12},
    {"type": "warning", "message": "Deprecated pref"}
  ]
}`

var sampleRequest = core.ValidateRequest{
	FilePath:   "/srv/files/tab-mix-1.4.xpi",
	Targets:    map[string][]string{"{ec8030f7}": {"4.0"}},
	Overrides:  map[string]string{"{ec8030f7}": "4.0"},
	Exhaustive: true,
}

// script writes an executable shell script and returns its path.
func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "validator.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestNewCommandValidator(t *testing.T) {
	_, err := NewCommandValidator(Options{})
	require.Error(t, err)

	_, err = NewCommandValidator(Options{Command: "x", Expressions: Expressions{Errors: "errors["}})
	require.Error(t, err)

	v, err := NewCommandValidator(Options{Command: "x"})
	require.NoError(t, err)
	assert.Equal(t, DefaultExpressions, v.exprs)
	assert.Equal(t, 2*time.Minute, v.timeout)
}

func TestCommandValidator_Args(t *testing.T) {
	v, err := NewCommandValidator(Options{Command: "x", Args: []string{"--output", "json"}})
	require.NoError(t, err)

	args, err := v.Args(sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--output", "json",
		"/srv/files/tab-mix-1.4.xpi",
		"--for-appversions", `{"{ec8030f7}":["4.0"]}`,
		"--overrides", `{"targetapp_maxVersion":{"{ec8030f7}":"4.0"}}`,
		"--exhaustive",
	}, args)
}

func TestCommandValidator_Validate(t *testing.T) {
	argsOut := filepath.Join(t.TempDir(), "args")
	cmd := script(t, `printf '%s\n' "$@" > "`+argsOut+`"
cat <<'EOF'
`+sampleReport+`
EOF`)
	v, err := NewCommandValidator(Options{Command: cmd})
	require.NoError(t, err)

	report, err := v.Validate(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 2, report.Warnings)
	assert.Equal(t, 0, report.Notices)
	require.Len(t, report.Messages, 2)
	assert.Equal(t, model.ValidationMessage{
		Type: "error", Message: "Unsupported API", File: "chrome/content/main.js", Line: 12,
	}, report.Messages[0])
	assert.JSONEq(t, sampleReport, string(report.Raw))

	recorded, err := os.ReadFile(argsOut)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(recorded), "/srv/files/tab-mix-1.4.xpi\n--for-appversions\n"))
}

func TestCommandValidator_CustomExpressions(t *testing.T) {
	v, err := NewCommandValidator(Options{Command: "x", Expressions: Expressions{
		Errors:   "summary.errors",
		Warnings: "messages[?type=='warning']",
		Notices:  "summary.notices",
		Messages: "messages[?type=='warning']",
	}})
	require.NoError(t, err)

	report, err := v.Parse([]byte(`{
		"summary": {"errors": 0, "notices": 4},
		"messages": [{"type": "warning", "message": "a"}, {"type": "notice", "message": "b"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, 1, report.Warnings)
	assert.Equal(t, 4, report.Notices)
	assert.Equal(t, []model.ValidationMessage{{Type: "warning", Message: "a"}}, report.Messages)
}

func TestCommandValidator_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		timeout time.Duration
		want    string
	}{
		{name: "non-zero exit", body: "echo 'cannot open file' >&2\nexit 3", want: "cannot open file"},
		{name: "malformed report", body: "echo 'not json'", want: "decode validator report"},
		{name: "wrong type", body: `echo '{"errors": "many"}'`, want: "want a number"},
		{name: "timeout", body: "exec sleep 5", timeout: 50 * time.Millisecond, want: "timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewCommandValidator(Options{Command: script(t, tt.body), Timeout: tt.timeout})
			require.NoError(t, err)
			_, err = v.Validate(context.Background(), sampleRequest)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCommandValidator_RequiresFile(t *testing.T) {
	v, err := NewCommandValidator(Options{Command: "x"})
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), core.ValidateRequest{})
	require.Error(t, err)
}

func TestLimitedBuffer(t *testing.T) {
	lb := &limitedBuffer{buf: new(bytes.Buffer), max: 4}
	n, err := lb.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "abcd", lb.buf.String())
}
