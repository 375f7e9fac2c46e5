package loom

import (
	"context"
	"time"
)

// RunResult is the outcome of a completed run.
type RunResult struct {
	// RunID is the identifier of the run.
	RunID string

	// Outcome is the terminal outcome of the run.
	Outcome Outcome

	// Nodes holds the final record of every node, keyed by node ID.
	Nodes map[string]*NodeRecord

	// Outputs are the sink node outputs, keyed "nodeID.port".
	// Skipped sinks contribute nothing.
	Outputs map[string]any

	// FailedNodes lists node failures when Outcome is OutcomeFailed.
	FailedNodes []*NodeError

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// Succeeded reports whether the run completed with every node either
// succeeded or skipped.
func (r *RunResult) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded
}

// Node returns the final record for a node, or nil if unknown.
func (r *RunResult) Node(id string) *NodeRecord {
	return r.Nodes[id]
}

// Err returns the aggregate error for a failed run, a CancellationError
// for a cancelled run, and nil for a succeeded run.
func (r *RunResult) Err() error {
	switch r.Outcome {
	case OutcomeFailed:
		return &RunError{RunID: r.RunID, Failed: r.FailedNodes}
	case OutcomeCancelled:
		return &CancellationError{RunID: r.RunID, Cause: context.Canceled}
	default:
		return nil
	}
}

func collectResult(runID string, g *CompiledGraph, rs *runState, start time.Time, cancelled bool) *RunResult {
	res := &RunResult{
		RunID:    runID,
		Outcome:  OutcomeSucceeded,
		Nodes:    rs.nodes,
		Outputs:  make(map[string]any),
		Duration: time.Since(start),
	}
	for id, r := range rs.nodes {
		switch r.Status {
		case StatusFailed:
			node, _ := g.Node(id)
			res.FailedNodes = append(res.FailedNodes, &NodeError{
				NodeID:   id,
				Kind:     node.Kind,
				Attempts: r.Attempts,
				Err:      r.Err,
			})
		case StatusCancelled:
			cancelled = true
		}
	}
	switch {
	case cancelled:
		res.Outcome = OutcomeCancelled
	case len(res.FailedNodes) > 0:
		res.Outcome = OutcomeFailed
	}
	for _, id := range g.Sinks() {
		r := rs.nodes[id]
		if r.Status != StatusSucceeded {
			continue
		}
		for port, value := range r.Outputs {
			res.Outputs[id+"."+port] = value
		}
	}
	return res
}
