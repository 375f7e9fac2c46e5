package llm

import (
	"fmt"

	"github.com/loomengine/loom/pkg/loom/errs"
)

// Error is a classified provider failure.
type Error struct {
	Op        string
	Err       error
	Retryable bool
}

// NewError wraps a provider failure with its operation and retryability.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCategory implements errs.Classifier. Rate limits and provider
// overload are transient; everything else is permanent.
func (e *Error) ErrorCategory() errs.Category {
	if e.Retryable {
		return errs.CategoryTransient
	}
	return errs.CategoryPermanent
}
