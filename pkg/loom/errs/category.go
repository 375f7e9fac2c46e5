// Package errs provides error classification and retry strategies for the
// workflow engine.
//
// Every failure that reaches the scheduler is classified into a Category,
// which decides whether the node is retried, fails immediately, or gets the
// single extra infrastructure retry reserved for sandbox faults.
package errs

import (
	"context"
	"errors"
	"fmt"
)

// Category represents how a failure should be handled by the scheduler.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: timeouts, resource exhaustion, flaky upstream services.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: malformed node configuration, output validation failure.
	CategoryPermanent

	// CategoryValidation indicates a bad graph shape. Fatal before any
	// execution starts; nothing runs.
	CategoryValidation

	// CategoryIsolation indicates a sandbox setup or teardown fault.
	// Treated as transient for exactly one extra attempt, then permanent.
	CategoryIsolation

	// CategoryCheckpoint indicates a checkpoint store fault. Surfaced to
	// the run controller; a save failure never aborts a run.
	CategoryCheckpoint
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryValidation:
		return "validation"
	case CategoryIsolation:
		return "isolation"
	case CategoryCheckpoint:
		return "checkpoint"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with its category and context.
type ClassifiedError struct {
	// Err is the underlying error.
	Err error

	// Category decides how the scheduler handles this failure.
	Category Category

	// Attempts is the number of attempts made before giving up.
	Attempts int

	// Context describes the operation that failed.
	Context string
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Attempts)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Attempts)
}

// Unwrap returns the underlying error.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(err error, category Category, opContext string) *ClassifiedError {
	return &ClassifiedError{Err: err, Category: category, Context: opContext}
}

// Transient creates a transient error.
func Transient(err error, opContext string) *ClassifiedError {
	return New(err, CategoryTransient, opContext)
}

// Permanent creates a permanent error.
func Permanent(err error, opContext string) *ClassifiedError {
	return New(err, CategoryPermanent, opContext)
}

// Validation creates a graph validation error.
func Validation(err error, opContext string) *ClassifiedError {
	return New(err, CategoryValidation, opContext)
}

// Isolation creates a sandbox infrastructure error.
func Isolation(err error, opContext string) *ClassifiedError {
	return New(err, CategoryIsolation, opContext)
}

// Classifier lets error producers report their own category without this
// package having to know their concrete types. The sandbox and model-client
// packages implement it on their error types.
type Classifier interface {
	ErrorCategory() Category
}

// Categorize determines how an error should be handled.
//
// Resolution order: explicit ClassifiedError wrapper, Classifier
// implementations anywhere in the chain, then well-known stdlib errors.
// Unknown errors are permanent (fail safe).
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent // shouldn't happen, fail safe
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Category
	}

	var cl Classifier
	if errors.As(err, &cl) {
		return cl.ErrorCategory()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}
	if errors.Is(err, context.Canceled) {
		return CategoryPermanent
	}

	return CategoryPermanent
}

// IsRetryable reports whether the scheduler should retry after this error.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsIsolation reports whether the error is a sandbox infrastructure fault.
func IsIsolation(err error) bool {
	return Categorize(err) == CategoryIsolation
}
