package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// "Key (field)=(value) already exists."
	reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)
	// "... is not present in table "x"."
	reNotPresent = regexp.MustCompile(`is not present in table "?([^"]+)"?`)
	// "... is still referenced from table "x"."
	reReferenced = regexp.MustCompile(`is still referenced from table "?([^"]+)"?`)
)

var tableNames = map[string]string{
	"applications":          "application",
	"app_versions":          "application version",
	"addons":                "add-on",
	"versions":              "add-on version",
	"files":                 "file",
	"applications_versions": "compatibility entry",
	"validation_jobs":       "validation job",
	"validation_results":    "validation result",
	"tasks":                 "task",
	"email_previews":        "email preview",
}

// MapDBError converts driver and context errors into AppErrors. Unrecognised errors
// are returned unchanged.
func MapDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "database operation timed out", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "database operation canceled", Cause: err}
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows):
		return &AppError{Code: ErrCodeNotFound, Message: "resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgerrcode.UniqueViolation:
		return &AppError{Code: ErrCodeConflict, Message: "value already exists", Field: uniqueField(pgErr), Cause: err}
	case pgErr.Code == pgerrcode.ForeignKeyViolation:
		return &AppError{Code: ErrCodeForeignKey, Message: foreignKeyMessage(pgErr), Cause: err}
	case pgErr.Code == pgerrcode.CheckViolation, pgErr.Code == pgerrcode.NotNullViolation:
		return &AppError{Code: ErrCodeValidation, Message: "invalid value", Field: pgErr.ColumnName, Cause: err}
	case pgErr.Code == pgerrcode.SerializationFailure,
		pgErr.Code == pgerrcode.DeadlockDetected,
		pgErr.Code == pgerrcode.LockNotAvailable,
		pgErr.Code == pgerrcode.TooManyConnections,
		pgerrcode.IsConnectionException(pgErr.Code),
		pgerrcode.IsOperatorIntervention(pgErr.Code):
		return &AppError{Code: ErrCodeTransient, Message: "temporary database failure", Cause: err}
	default:
		return &AppError{Code: ErrCodeInternal, Message: "database error", Cause: err}
	}
}

func uniqueField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	return ""
}

func foreignKeyMessage(pgErr *pgconn.PgError) string {
	if m := reNotPresent.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return "referenced " + describeTable(m[1]) + " does not exist"
	}
	if m := reReferenced.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return "still referenced by a " + describeTable(m[1])
	}
	if pgErr.TableName != "" {
		return "invalid reference from " + describeTable(pgErr.TableName)
	}
	return "invalid reference"
}

func describeTable(table string) string {
	table = strings.ToLower(strings.TrimSpace(table))
	if name, ok := tableNames[table]; ok {
		return name
	}
	return strings.ReplaceAll(table, "_", " ")
}
