// Package sandbox contains untrusted code execution behind a single Run
// contract. The engine never assumes a specific isolation technology; it
// only depends on Runner, so deployments can substitute their own boundary.
//
// Three tiers are provided:
//
//   - TierNone: in-process interpreter, trusted code only. Refused unless
//     the policy explicitly opts in.
//   - TierLightweight: restricted subprocess with a scrubbed environment,
//     wall-clock timeout, and forced process-group termination.
//   - TierIsolated: container-equivalent isolation with memory/CPU ceilings
//     and configurable network egress, layered on the subprocess runner.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loomengine/loom/pkg/loom/errs"
)

// Tier selects the isolation level for a sandboxed execution.
type Tier string

// Isolation tiers, weakest to strongest.
const (
	TierNone        Tier = "none"
	TierLightweight Tier = "lightweight"
	TierIsolated    Tier = "isolated"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierNone, TierLightweight, TierIsolated:
		return true
	}
	return false
}

// Limits bounds an isolated execution.
type Limits struct {
	// WallTimeout is the wall-clock ceiling. Zero means DefaultWallTimeout.
	WallTimeout time.Duration `json:"wall_timeout,omitempty" yaml:"wall_timeout,omitempty"`

	// MemoryBytes caps resident memory. Zero means unlimited.
	// Enforced by the isolated tier; best-effort elsewhere.
	MemoryBytes int64 `json:"memory_bytes,omitempty" yaml:"memory_bytes,omitempty"`

	// CPUs caps CPU cores. Zero means unlimited.
	// Enforced by the isolated tier.
	CPUs float64 `json:"cpus,omitempty" yaml:"cpus,omitempty"`

	// NetworkEgress allows outbound network access. Only honored by the
	// isolated tier; the lightweight tier never grants network access.
	NetworkEgress bool `json:"network_egress,omitempty" yaml:"network_egress,omitempty"`
}

// DefaultWallTimeout applies when a policy carries no explicit timeout.
// No isolated execution ever runs unbounded.
const DefaultWallTimeout = 2 * time.Minute

// Policy is the per-run isolation policy, declared on the workflow graph.
type Policy struct {
	Tier   Tier   `json:"tier" yaml:"tier"`
	Limits Limits `json:"limits,omitempty" yaml:"limits,omitempty"`

	// AllowUnsandboxed must be set for TierNone to be accepted. In-process
	// execution of user code is a deliberate opt-in, never a default.
	AllowUnsandboxed bool `json:"allow_unsandboxed,omitempty" yaml:"allow_unsandboxed,omitempty"`
}

// Timeout returns the effective wall-clock ceiling.
func (p Policy) Timeout() time.Duration {
	if p.Limits.WallTimeout > 0 {
		return p.Limits.WallTimeout
	}
	return DefaultWallTimeout
}

// Spec describes what to execute.
type Spec struct {
	// Command is the argv to run. Required by the subprocess and
	// container runners.
	Command []string

	// Code is interpreted source for the in-process runner.
	Code string

	// Env is the exact environment for the child. The runners never
	// inherit the parent environment.
	Env []string

	// Dir is the working directory. Empty means the runner's default.
	Dir string
}

// Result is the output of a completed isolated execution.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner executes a payload under an isolation policy.
//
// Implementations guarantee that no execution outlives its timeout and
// that context cancellation forcibly terminates the underlying process or
// container before Run returns. No orphans.
type Runner interface {
	Run(ctx context.Context, spec Spec, payload []byte, pol Policy) (*Result, error)
}

// FaultKind classifies sandbox failures.
type FaultKind string

// Sandbox fault kinds.
const (
	// FaultTimeout: the execution hit its wall-clock ceiling and was
	// forcibly terminated. Retryable.
	FaultTimeout FaultKind = "timeout"

	// FaultResourceExceeded: the execution exceeded a memory/CPU ceiling
	// and was terminated. Retryable.
	FaultResourceExceeded FaultKind = "resource_exceeded"

	// FaultExecution: the code ran and failed (non-zero exit, runtime
	// error). Not retryable at this layer.
	FaultExecution FaultKind = "execution"

	// FaultSetup: the boundary itself could not start or tear down the
	// execution. Gets one infrastructure retry.
	FaultSetup FaultKind = "setup"

	// FaultPolicy: the policy refused the execution (e.g. tier "none"
	// without opt-in). Never retried.
	FaultPolicy FaultKind = "policy"

	// FaultKilled: the owning run was cancelled and the execution was
	// forcibly terminated.
	FaultKilled FaultKind = "killed"
)

// ErrUnsandboxedRefused is returned when TierNone is requested without the
// explicit opt-in.
var ErrUnsandboxedRefused = errors.New("sandbox: in-process execution refused without explicit opt-in")

// Error is a classified sandbox failure.
type Error struct {
	Kind FaultKind
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("sandbox %s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCategory implements errs.Classifier so the scheduler's retry logic
// sees sandbox faults with the right category.
func (e *Error) ErrorCategory() errs.Category {
	switch e.Kind {
	case FaultTimeout, FaultResourceExceeded:
		return errs.CategoryTransient
	case FaultSetup:
		return errs.CategoryIsolation
	default:
		return errs.CategoryPermanent
	}
}

func newError(kind FaultKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// RunnerSet maps tiers to runners so callers can resolve a policy to a
// concrete boundary.
type RunnerSet struct {
	None        Runner
	Lightweight Runner
	Isolated    Runner
}

// DefaultRunners returns the built-in tier mapping: interpreter for none,
// subprocess for lightweight, container for isolated.
func DefaultRunners() RunnerSet {
	sub := NewSubprocessRunner()
	return RunnerSet{
		None:        NewInterpreterRunner(),
		Lightweight: sub,
		Isolated:    NewContainerRunner(sub),
	}
}

// For returns the runner for a tier, or an error for unknown tiers.
func (s RunnerSet) For(tier Tier) (Runner, error) {
	switch tier {
	case TierNone:
		if s.None == nil {
			return nil, newError(FaultPolicy, fmt.Errorf("no runner for tier %q", tier))
		}
		return s.None, nil
	case TierLightweight:
		if s.Lightweight == nil {
			return nil, newError(FaultPolicy, fmt.Errorf("no runner for tier %q", tier))
		}
		return s.Lightweight, nil
	case TierIsolated:
		if s.Isolated == nil {
			return nil, newError(FaultPolicy, fmt.Errorf("no runner for tier %q", tier))
		}
		return s.Isolated, nil
	default:
		return nil, newError(FaultPolicy, fmt.Errorf("unknown sandbox tier %q", tier))
	}
}
