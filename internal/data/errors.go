package data

import (
	"fmt"

	apperrors "github.com/target/mmk-bulkval/internal/errors"
)

// dbErr wraps a driver error with the operation name after mapping it to an AppError.
func dbErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, apperrors.MapDBError(err))
}
