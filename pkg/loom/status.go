package loom

// Status is a node's execution state within a run.
type Status string

// Node statuses.
const (
	// StatusPending: upstream dependencies are not yet satisfied.
	StatusPending Status = "pending"

	// StatusReady: all dependencies satisfied, waiting for a slot.
	StatusReady Status = "ready"

	// StatusRunning: dispatched to an executor.
	StatusRunning Status = "running"

	// StatusSucceeded: executor returned outputs.
	StatusSucceeded Status = "succeeded"

	// StatusFailed: executor failed with retries exhausted.
	StatusFailed Status = "failed"

	// StatusSkipped: execution forgone, see SkipReason.
	StatusSkipped Status = "skipped"

	// StatusCancelled: the run was cancelled before the node finished.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}

// SkipReason distinguishes why a node was skipped.
type SkipReason string

// Skip reasons.
const (
	// SkipBranchNotTaken: a decision upstream deactivated every path to
	// the node. Counts as success for run outcome.
	SkipBranchNotTaken SkipReason = "branch"

	// SkipUpstreamFailure: a required upstream failed or was cancelled.
	// Counts as failure fallout for run outcome.
	SkipUpstreamFailure SkipReason = "upstream"
)

// Outcome is the aggregate result of a run.
type Outcome string

// Run outcomes.
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)
