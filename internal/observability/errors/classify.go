// Package errors labels failures for metrics and alerts.
package errors

import (
	"context"
	goerrors "errors"
	"os/exec"
	"reflect"
	"strings"

	apperrors "github.com/target/mmk-bulkval/internal/errors"
)

// Error classes shared by metrics and failure alerts.
const (
	ClassTransient         = "transient"
	ClassTimeout           = "timeout"
	ClassCanceled          = "canceled"
	ClassRetryableExternal = "retryable_external"
	ClassUnknown           = "unknown"
)

// Classify returns a short label for err. Known cases map to the Class constants;
// anything else is named after its innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case goerrors.Is(err, context.Canceled):
		return ClassCanceled
	case apperrors.IsTransient(err):
		return ClassTransient
	}
	var exitErr *exec.ExitError
	if goerrors.As(err, &exitErr) {
		return ClassRetryableExternal
	}
	if code := apperrors.Code(err); code != "" && code != apperrors.ErrCodeInternal {
		return string(code)
	}
	return typeName(err)
}

func typeName(err error) string {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ClassUnknown
	}
	name := strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
	if name == "" || name == "errors_errorstring" || name == "fmt_wraperror" {
		return ClassUnknown
	}
	return name
}
