// pkg/hermes_err/wrap.go

package hermes_err

import (
	cerr "github.com/cockroachdb/errors"
)

// WrapValidationError classifies err as a validation failure (exit 2) and
// keeps its stack. nil stays nil.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{
		Category: CategoryValidation,
		Message:  err.Error(),
		Cause:    cerr.WithStack(err),
	}
}
