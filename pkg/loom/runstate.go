package loom

import (
	"errors"
	"sort"

	"github.com/loomengine/loom/pkg/loom/checkpoint"
)

// NodeRecord tracks one node's state within a run.
type NodeRecord struct {
	Status   Status
	Outputs  Outputs
	Attempts int
	Err      error

	// SkipReason is set only when Status is StatusSkipped.
	SkipReason SkipReason
}

// ActivePorts returns the output ports the node activated, sorted.
// Downstream edges from ports not listed here are inactive.
func (r *NodeRecord) ActivePorts() []string {
	if len(r.Outputs) == 0 {
		return nil
	}
	ports := make([]string, 0, len(r.Outputs))
	for port := range r.Outputs {
		ports = append(ports, port)
	}
	sort.Strings(ports)
	return ports
}

// runState is the mutable state of a run. It is owned by the coordinator
// goroutine and never accessed concurrently.
type runState struct {
	nodes      map[string]*NodeRecord
	generation int
}

func newRunState(g *CompiledGraph) *runState {
	rs := &runState{nodes: make(map[string]*NodeRecord, g.Len())}
	for id := range g.nodes {
		rs.nodes[id] = &NodeRecord{Status: StatusPending}
	}
	return rs
}

func (rs *runState) record(id string) *NodeRecord {
	return rs.nodes[id]
}

// terminal reports whether every node has reached a terminal status.
func (rs *runState) terminal() bool {
	for _, r := range rs.nodes {
		if !r.Status.Terminal() {
			return false
		}
	}
	return true
}

// snapshot freezes the state into a persisted form, incrementing the
// generation. Running nodes are recorded by ID so resume can reschedule
// them; their status in the snapshot is reverted to pending.
func (rs *runState) snapshot(runID, workflow, graphHash string, inputs map[string]any) *checkpoint.Snapshot {
	rs.generation++
	snap := checkpoint.New(runID, graphHash, rs.generation)
	snap.Workflow = workflow
	snap.Inputs = inputs
	for id, r := range rs.nodes {
		st := r.Status
		if st == StatusRunning {
			snap.Running = append(snap.Running, id)
			st = StatusPending
		} else if st == StatusReady {
			st = StatusPending
		}
		ns := checkpoint.NodeState{
			Status:     string(st),
			Attempts:   r.Attempts,
			SkipReason: string(r.SkipReason),
		}
		if r.Err != nil {
			ns.Error = r.Err.Error()
		}
		if st == StatusSucceeded {
			ns.Outputs = r.Outputs
			ns.SelectedPorts = r.ActivePorts()
		}
		snap.Nodes[id] = ns
	}
	sort.Strings(snap.Running)
	return snap
}

// restoreRunState rebuilds run state from a snapshot. Only succeeded and
// branch-skipped nodes keep their status; everything else reverts to
// pending so the run can finish the unfinished work. Attempt counts carry
// over.
func restoreRunState(g *CompiledGraph, snap *checkpoint.Snapshot) *runState {
	rs := newRunState(g)
	rs.generation = snap.Generation
	for id, ns := range snap.Nodes {
		r, ok := rs.nodes[id]
		if !ok {
			continue
		}
		r.Attempts = ns.Attempts
		switch Status(ns.Status) {
		case StatusSucceeded:
			r.Status = StatusSucceeded
			r.Outputs = ns.Outputs
		case StatusSkipped:
			if SkipReason(ns.SkipReason) == SkipBranchNotTaken {
				r.Status = StatusSkipped
				r.SkipReason = SkipBranchNotTaken
			}
		}
		if ns.Error != "" && r.Status == StatusPending {
			// Keep the prior failure visible until the retried node
			// overwrites it.
			r.Err = errors.New(ns.Error)
		}
	}
	return rs
}
