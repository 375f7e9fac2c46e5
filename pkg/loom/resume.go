package loom

import (
	"fmt"

	"github.com/loomengine/loom/pkg/loom/checkpoint"
)

// Resume continues a previously checkpointed run from its latest snapshot.
//
// Succeeded nodes keep their outputs and are never re-executed; the same
// holds for inactive-branch skips, so decision nodes do not rerun. Nodes
// that were running, failed, or skipped because of an upstream failure are
// scheduled again. Attempt counts carry over, so a node that exhausted its
// retry budget before the interruption gets a fresh budget on top of it.
//
// The store must be passed both here and in opts (through
// WithCheckpointStore) for the resumed run to keep checkpointing.
func Resume(ctx Context, g *Graph, store checkpoint.Store, runID string, opts ...RunOption) (*RunResult, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if store == nil {
		return nil, fmt.Errorf("resume: checkpoint store is required")
	}
	if runID == "" {
		return nil, ErrRunIDRequired
	}

	cg, err := Compile(g)
	if err != nil {
		return nil, err
	}
	snap, err := store.LoadLatest(runID)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", runID, err)
	}
	if err := snap.VerifyGraph(cg.hash); err != nil {
		return nil, fmt.Errorf("resume %s: %w", runID, err)
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	// The snapshot's recorded inputs win over any WithInput passed here.
	if v, ok := snap.Inputs[DefaultInputPort]; ok {
		cfg.input = v
		cfg.hasInput = true
	}

	base := asExecutionContext(ctx)
	if base.runID != runID {
		rebound := *base
		rebound.runID = runID
		base = &rebound
	}

	state := restoreRunState(cg, snap)
	base.logger.Info("resuming run",
		"run_id", runID,
		"generation", snap.Generation,
		"workflow", snap.Workflow)
	return runWith(base, cg, cfg, nil, state)
}
