package loom

import (
	"context"
	"sync"

	"github.com/loomengine/loom/pkg/loom/checkpoint"
)

// RunStatus describes a run managed by a Controller.
type RunStatus struct {
	RunID  string
	Active bool

	// Result is set once the run reaches a terminal outcome.
	Result *RunResult
}

// managedRun is one run owned by a Controller.
type managedRun struct {
	runID  string
	cancel context.CancelFunc
	done   chan struct{}

	// result and err are written once before done closes.
	result *RunResult
	err    error
}

// Controller starts runs in the background and exposes cancel, status,
// and wait over them. Each run keeps its identity after completion until
// Forget is called, so late status queries still resolve.
type Controller struct {
	mu   sync.Mutex
	runs map[string]*managedRun
}

// NewController creates an empty controller.
func NewController() *Controller {
	return &Controller{runs: make(map[string]*managedRun)}
}

// Start launches a run in the background and returns its run ID.
// Returns ErrRunActive if a run with the context's run ID is in flight.
func (c *Controller) Start(ctx Context, g *Graph, opts ...RunOption) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	return c.launch(ctx, func(runCtx Context) (*RunResult, error) {
		return Run(runCtx, g, opts...)
	})
}

// Resume launches a resumed run in the background.
func (c *Controller) Resume(ctx Context, g *Graph, store checkpoint.Store, runID string, opts ...RunOption) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	base := asExecutionContext(ctx)
	if runID != "" && base.runID != runID {
		rebound := *base
		rebound.runID = runID
		base = &rebound
	}
	return c.launch(base, func(runCtx Context) (*RunResult, error) {
		return Resume(runCtx, g, store, runCtx.RunID(), opts...)
	})
}

func (c *Controller) launch(ctx Context, fn func(Context) (*RunResult, error)) (string, error) {
	base := asExecutionContext(ctx)
	runID := base.runID

	cancellable, cancel := context.WithCancel(base.Context)
	bound := *base
	bound.Context = cancellable

	mr := &managedRun{runID: runID, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	if prev, ok := c.runs[runID]; ok {
		select {
		case <-prev.done:
			// Finished run with the same ID is replaced.
		default:
			c.mu.Unlock()
			cancel()
			return "", ErrRunActive
		}
	}
	c.runs[runID] = mr
	c.mu.Unlock()

	go func() {
		defer cancel()
		defer close(mr.done)
		mr.result, mr.err = fn(&bound)
	}()
	return runID, nil
}

func (c *Controller) lookup(runID string) (*managedRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mr, ok := c.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return mr, nil
}

// Wait blocks until the run completes or ctx expires.
func (c *Controller) Wait(ctx context.Context, runID string) (*RunResult, error) {
	mr, err := c.lookup(runID)
	if err != nil {
		return nil, err
	}
	select {
	case <-mr.done:
		return mr.result, mr.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel requests cancellation and blocks until the run has drained its
// in-flight nodes and produced a terminal result.
func (c *Controller) Cancel(ctx context.Context, runID string) (*RunResult, error) {
	mr, err := c.lookup(runID)
	if err != nil {
		return nil, err
	}
	mr.cancel()
	select {
	case <-mr.done:
		return mr.result, mr.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status reports whether the run is still in flight and, once terminal,
// its result.
func (c *Controller) Status(runID string) (RunStatus, error) {
	mr, err := c.lookup(runID)
	if err != nil {
		return RunStatus{}, err
	}
	st := RunStatus{RunID: runID, Active: true}
	select {
	case <-mr.done:
		st.Active = false
		st.Result = mr.result
	default:
	}
	return st, nil
}

// Runs lists the IDs of all runs the controller knows about.
func (c *Controller) Runs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.runs))
	for id := range c.runs {
		ids = append(ids, id)
	}
	return ids
}

// Forget drops a finished run from the controller.
// Returns ErrRunActive if the run is still in flight.
func (c *Controller) Forget(runID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	mr, ok := c.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	select {
	case <-mr.done:
		delete(c.runs, runID)
		return nil
	default:
		return ErrRunActive
	}
}
