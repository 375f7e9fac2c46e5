package loom

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for run setup.
var (
	// ErrNilContext indicates Run was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNoExecutor indicates a graph contains a kind with no registered
	// executor.
	ErrNoExecutor = errors.New("no executor registered for node kind")

	// ErrRunIDRequired indicates checkpointing was enabled without a run ID.
	ErrRunIDRequired = errors.New("run ID required for checkpointing")

	// ErrRunNotFound indicates the controller has no run with that ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunActive indicates an operation that requires a finished run
	// was attempted on a live one.
	ErrRunActive = errors.New("run is still active")
)

// NodeError wraps an execution failure with node context.
type NodeError struct {
	// NodeID is the node that failed.
	NodeID string
	// Kind is the node's kind.
	Kind NodeKind
	// Attempts is how many executions were tried.
	Attempts int
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s) failed after %d attempt(s): %v", e.NodeID, e.Kind, e.Attempts, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// RunError aggregates a failed run's node failures. Status reporting
// always names the failing nodes, never a bare "run failed".
type RunError struct {
	RunID  string
	Failed []*NodeError
}

// Error implements the error interface. Each node failure is spelled
// out in full so the run error alone is enough to diagnose.
func (e *RunError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("run %s failed: %s", e.RunID, strings.Join(parts, "; "))
}

// Unwrap returns the node errors for errors.Is/As traversal.
func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f
	}
	return errs
}

// CancellationError reports a run stopped by its cancel token.
type CancellationError struct {
	RunID string
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("run %s cancelled: %v", e.RunID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// StalledError reports a coordinator invariant violation: nodes remain
// non-terminal but nothing is ready or running. A validated acyclic graph
// cannot reach this state.
type StalledError struct {
	RunID     string
	Remaining []string
}

// Error implements the error interface.
func (e *StalledError) Error() string {
	return fmt.Sprintf("run %s stalled with %d unreachable node(s): %s",
		e.RunID, len(e.Remaining), strings.Join(e.Remaining, ", "))
}
