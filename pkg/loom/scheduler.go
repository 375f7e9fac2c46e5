package loom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loomengine/loom/pkg/loom/errs"
	"github.com/loomengine/loom/pkg/loom/event"
)

// Run compiles and executes a workflow graph, blocking until the run
// reaches a terminal outcome or ctx is cancelled.
//
// A non-nil RunResult is returned for failed and cancelled runs too;
// inspect result.Outcome or result.Err(). The error return is reserved
// for runs that could not start or could not finish cleanly.
func Run(ctx Context, g *Graph, opts ...RunOption) (*RunResult, error) {
	cg, err := Compile(g)
	if err != nil {
		return nil, err
	}
	return RunCompiled(ctx, cg, opts...)
}

// RunCompiled executes a previously compiled graph.
func RunCompiled(ctx Context, cg *CompiledGraph, opts ...RunOption) (*RunResult, error) {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return runWith(ctx, cg, cfg, nil, nil)
}

// completion is one finished node execution, reported to the coordinator.
type completion struct {
	nodeID   string
	outputs  Outputs
	attempts int
	duration time.Duration
	err      error
}

// coordinator owns the run state. A single goroutine mutates it; node
// executions happen in worker goroutines that report back over done.
type coordinator struct {
	base  *executionContext
	cfg   *runConfig
	graph *CompiledGraph
	state *runState

	// slots is the token pool bounding concurrency. Child runs of
	// composite nodes share the parent's pool.
	slots chan struct{}
	done  chan completion

	ready     []string
	running   map[string]struct{}
	cancelled bool
}

func runWith(ctx Context, cg *CompiledGraph, cfg *runConfig, slots chan struct{}, state *runState) (*RunResult, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	for id := range cg.nodes {
		node := cg.nodes[id]
		if cfg.executors[node.Kind] == nil {
			return nil, fmt.Errorf("%w: kind %q (node %q)", ErrNoExecutor, node.Kind, id)
		}
	}

	base := asExecutionContext(ctx)
	if !base.policySet && cg.graph.Environment.Tier.Valid() {
		pol := *base
		pol.policy = cg.graph.Environment
		pol.policySet = true
		base = &pol
	}

	if slots == nil {
		slots = make(chan struct{}, cfg.parallelism)
		for i := 0; i < cfg.parallelism; i++ {
			slots <- struct{}{}
		}
	}
	if state == nil {
		state = newRunState(cg)
	}

	c := &coordinator{
		base:    base,
		cfg:     cfg,
		graph:   cg,
		state:   state,
		slots:   slots,
		done:    make(chan completion, cap(slots)),
		running: make(map[string]struct{}),
	}
	return c.run()
}

func (c *coordinator) run() (*RunResult, error) {
	start := time.Now()
	runID := c.base.runID
	log := c.base.logger.With("run_id", runID, "workflow", c.graph.graph.Name)

	runCtx, endSpan := c.startRunSpan()
	defer endSpan()

	log.Info("run starting", "nodes", c.graph.Len(), "parallelism", cap(c.slots))
	c.publish(event.New(event.TypeRunStarted, runID).
		With("workflow", c.graph.graph.Name))

	c.evaluateAll()

	var tick <-chan time.Time
	if c.cfg.checkpointStore != nil && c.cfg.checkpointInterval > 0 {
		ticker := time.NewTicker(c.cfg.checkpointInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if c.state.terminal() {
			break
		}
		if len(c.ready) == 0 && len(c.running) == 0 {
			if c.cancelled {
				c.markRemainingCancelled()
				break
			}
			remaining := c.remaining()
			log.Error("run stalled", "remaining", remaining)
			return nil, &StalledError{RunID: runID, Remaining: remaining}
		}

		// Only compete for a slot when there is work to dispatch.
		var acquire chan struct{}
		if len(c.ready) > 0 && !c.cancelled {
			acquire = c.slots
		}

		select {
		case <-acquire:
			id := c.ready[0]
			c.ready = c.ready[1:]
			c.dispatch(runCtx, id)
		case comp := <-c.done:
			c.handleCompletion(runCtx, comp)
		case <-tick:
			c.saveCheckpoint(runCtx, log)
		case <-c.base.Done():
			if !c.cancelled {
				c.cancelled = true
				c.ready = nil
				log.Warn("run cancelled, draining in-flight nodes",
					"in_flight", len(c.running))
			}
		}
	}

	res := collectResult(runID, c.graph, c.state, start, c.cancelled)
	c.saveCheckpoint(runCtx, log)

	c.cfg.metrics.RecordRun(runCtx, string(res.Outcome), res.Duration)
	switch res.Outcome {
	case OutcomeCancelled:
		log.Warn("run cancelled", "duration", res.Duration)
		c.publish(event.New(event.TypeRunCancelled, runID))
	default:
		log.Info("run finished",
			"outcome", res.Outcome,
			"failed_nodes", len(res.FailedNodes),
			"duration", res.Duration)
		c.publish(event.New(event.TypeRunCompleted, runID).
			With("outcome", string(res.Outcome)))
	}
	return res, nil
}

func (c *coordinator) startRunSpan() (context.Context, func()) {
	spanCtx, span := c.cfg.spans.StartRunSpan(c.base, c.graph.graph.Name, c.base.runID)
	return spanCtx, func() { c.cfg.spans.EndSpanWithError(span, nil) }
}

func (c *coordinator) remaining() []string {
	var ids []string
	for id, r := range c.state.nodes {
		if !r.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *coordinator) markRemainingCancelled() {
	for _, r := range c.state.nodes {
		if !r.Status.Terminal() {
			r.Status = StatusCancelled
		}
	}
}

// evaluateAll decides readiness for every non-terminal pending node,
// cascading skips until a fixpoint. Used once at run start so sources
// and resume-restored terminal states seed the frontier.
func (c *coordinator) evaluateAll() {
	for changed := true; changed; {
		changed = false
		for id, r := range c.state.nodes {
			if r.Status != StatusPending {
				continue
			}
			if c.decide(id) {
				changed = true
			}
		}
	}
}

// evaluateSuccessors re-decides only the direct successors of id,
// cascading into the successors of any node that became skipped.
func (c *coordinator) evaluateSuccessors(id string) {
	queue := []string{id}
	for len(queue) > 0 {
		src := queue[0]
		queue = queue[1:]
		for _, e := range c.graph.OutEdges(src) {
			r := c.state.record(e.Target)
			if r.Status != StatusPending {
				continue
			}
			if c.decide(e.Target) && r.Status == StatusSkipped {
				queue = append(queue, e.Target)
			}
		}
	}
}

// decide moves one pending node to ready or skipped if its predecessors
// allow a decision. Returns true when the status changed.
//
// Skips inherit their reason: a node behind a failure-skip is itself a
// failure-skip, so resume knows to re-evaluate the whole chain rather
// than treating it as a branch never taken.
func (c *coordinator) decide(id string) bool {
	preds := c.graph.InEdges(id)
	if len(preds) == 0 {
		c.markReady(id)
		return true
	}

	allTerminal := true
	anyCasualty := false
	anySatisfied := false
	anyUpstreamSkip := false
	for _, e := range preds {
		pred := c.state.record(e.Source)
		switch pred.Status {
		case StatusFailed, StatusCancelled:
			anyCasualty = true
		case StatusSucceeded:
			if _, active := pred.Outputs[e.SourcePort]; active {
				anySatisfied = true
			}
		case StatusSkipped:
			if pred.SkipReason == SkipUpstreamFailure {
				anyUpstreamSkip = true
			}
		default:
			allTerminal = false
		}
	}

	switch c.cfg.skipPolicy {
	case SkipAll:
		if !allTerminal {
			return false
		}
		if anySatisfied {
			c.markReady(id)
			return true
		}
		reason := SkipBranchNotTaken
		if anyCasualty || anyUpstreamSkip {
			reason = SkipUpstreamFailure
		}
		c.markSkipped(id, reason)
		return true
	default: // SkipAny
		if anyCasualty || anyUpstreamSkip {
			// Upstream failure propagates without waiting for the
			// remaining predecessors.
			c.markSkipped(id, SkipUpstreamFailure)
			return true
		}
		if !allTerminal {
			return false
		}
		for _, e := range preds {
			pred := c.state.record(e.Source)
			if pred.Status == StatusSkipped {
				c.markSkipped(id, pred.SkipReason)
				return true
			}
			if _, active := pred.Outputs[e.SourcePort]; !active {
				c.markSkipped(id, SkipBranchNotTaken)
				return true
			}
		}
		c.markReady(id)
		return true
	}
}

func (c *coordinator) markReady(id string) {
	c.state.record(id).Status = StatusReady
	c.ready = append(c.ready, id)
}

func (c *coordinator) markSkipped(id string, reason SkipReason) {
	r := c.state.record(id)
	r.Status = StatusSkipped
	r.SkipReason = reason
	c.base.logger.Debug("node skipped",
		"run_id", c.base.runID, "node_id", id, "reason", reason)
	c.publish(event.NewNode(event.TypeNodeSkipped, c.base.runID, id).
		With("reason", string(reason)))
}

// resolveInputs gathers a node's inputs from its active in-edges. Source
// nodes additionally receive the run-level input on the default port.
func (c *coordinator) resolveInputs(id string) map[string]any {
	inputs := make(map[string]any)
	preds := c.graph.InEdges(id)
	if len(preds) == 0 && c.cfg.hasInput {
		inputs[DefaultInputPort] = c.cfg.input
	}
	for _, e := range preds {
		pred := c.state.record(e.Source)
		if pred.Status != StatusSucceeded {
			continue
		}
		if v, ok := pred.Outputs[e.SourcePort]; ok {
			inputs[e.TargetPort] = v
		}
	}
	return inputs
}

// retryFor resolves the node's retry configuration. Node parameters
// max_retries and retry_backoff override the run-level defaults.
func (c *coordinator) retryFor(node Node) errs.RetryConfig {
	cfg := c.cfg.retry
	if node.Parameters.Has("max_retries") {
		cfg.MaxAttempts = node.Parameters.Int("max_retries", cfg.MaxAttempts-1) + 1
	}
	if node.Parameters.Has("retry_backoff") {
		cfg.InitialBackoff = node.Parameters.Duration("retry_backoff", cfg.InitialBackoff)
	}
	return cfg
}

// dispatch launches one node execution. The caller has already taken a
// slot; handleCompletion returns it once the record is terminal.
func (c *coordinator) dispatch(runCtx context.Context, id string) {
	node := c.graph.nodes[id]
	r := c.state.record(id)
	r.Status = StatusRunning
	c.running[id] = struct{}{}

	inputs := c.resolveInputs(id)
	executor := c.cfg.executors[node.Kind]
	retry := c.retryFor(node)
	priorAttempts := r.Attempts
	runID := c.base.runID

	c.base.logger.Info("node starting",
		"run_id", runID, "node_id", id, "kind", node.Kind)
	c.publish(event.NewNode(event.TypeNodeStarted, runID, id).
		With("kind", string(node.Kind)))

	go func() {
		start := time.Now()
		nodeCtx, span := c.cfg.spans.StartNodeSpan(runCtx, id, string(node.Kind))

		res := errs.WithRetry(nodeCtx, retry, func(ctx context.Context, attempt int) (Outputs, error) {
			if attempt > 1 {
				c.cfg.metrics.RecordRetry(ctx, id)
				c.publish(event.NewNode(event.TypeNodeRetrying, runID, id).
					With("attempt", attempt))
			}
			ec := c.base.forNode(ctx, id, priorAttempts+attempt, c)
			return executor.Execute(ec, node, inputs)
		})

		c.cfg.spans.EndSpanWithError(span, res.Err)
		c.cfg.metrics.RecordNodeExecution(nodeCtx, id, string(node.Kind), res.Duration, res.Err)

		c.done <- completion{
			nodeID:   id,
			outputs:  res.Value,
			attempts: res.Attempts,
			duration: time.Since(start),
			err:      res.Err,
		}
	}()
}

func (c *coordinator) handleCompletion(runCtx context.Context, comp completion) {
	id := comp.nodeID
	delete(c.running, id)
	// The slot stays held until the record is terminal, so the running
	// set never exceeds the parallelism limit.
	c.slots <- struct{}{}
	r := c.state.record(id)
	r.Attempts += comp.attempts
	log := c.base.logger.With("run_id", c.base.runID, "node_id", id)

	switch {
	case comp.err == nil:
		r.Status = StatusSucceeded
		r.Outputs = comp.outputs
		log.Info("node succeeded",
			"attempts", r.Attempts, "duration", comp.duration)
		c.publish(event.NewNode(event.TypeNodeSucceeded, c.base.runID, id).
			With("attempts", r.Attempts))
	case errors.Is(comp.err, context.Canceled) && (c.cancelled || c.base.Err() != nil):
		// The completion can race the coordinator noticing Done.
		c.cancelled = true
		c.ready = nil
		r.Status = StatusCancelled
		log.Warn("node cancelled")
	default:
		r.Status = StatusFailed
		r.Err = comp.err
		log.Error("node failed",
			"attempts", r.Attempts,
			"category", errs.Categorize(comp.err),
			"error", comp.err)
		c.publish(event.NewNode(event.TypeNodeFailed, c.base.runID, id).
			With("error", comp.err.Error()).
			With("attempts", r.Attempts))
	}

	if !c.cancelled {
		c.evaluateSuccessors(id)
	}
	if c.cfg.checkpointStore != nil {
		c.saveCheckpoint(runCtx, log)
	}
}

// saveCheckpoint persists the current state. Save failures are logged and
// the run keeps going; a broken store never fails a healthy run.
func (c *coordinator) saveCheckpoint(runCtx context.Context, log *slog.Logger) {
	if c.cfg.checkpointStore == nil {
		return
	}
	snap := c.state.snapshot(c.base.runID, c.graph.graph.Name, c.graph.hash, c.runInputs())
	if err := c.cfg.checkpointStore.Save(snap); err != nil {
		log.Warn("checkpoint save failed",
			"generation", snap.Generation, "error", err)
		return
	}
	if data, err := snap.Marshal(); err == nil {
		c.cfg.metrics.RecordCheckpoint(runCtx, c.base.runID, int64(len(data)))
	}
	c.publish(event.New(event.TypeCheckpointSaved, c.base.runID).
		With("generation", snap.Generation))
}

func (c *coordinator) runInputs() map[string]any {
	if !c.cfg.hasInput {
		return nil
	}
	return map[string]any{DefaultInputPort: c.cfg.input}
}

func (c *coordinator) publish(evt event.Event) {
	if c.cfg.bus != nil {
		c.cfg.bus.Publish(evt)
	}
}

// RunSubgraph executes an embedded graph as a child run sharing the
// parent's slot pool. The calling composite node returns its own slot for
// the child's duration so a parallelism-1 run cannot deadlock on itself.
func (c *coordinator) RunSubgraph(ctx Context, g *Graph, input any) (map[string]any, error) {
	cg, err := Compile(g)
	if err != nil {
		return nil, err
	}

	childCfg := *c.cfg
	childCfg.checkpointStore = nil
	if input != nil {
		childCfg.input = input
		childCfg.hasInput = true
	} else {
		childCfg.input = nil
		childCfg.hasInput = false
	}

	childCtx := asExecutionContext(ctx)
	child := *childCtx
	child.Context = ctx
	child.runID = c.base.runID + "/" + ctx.NodeID()

	// Give the composite's slot back while the child runs.
	c.slots <- struct{}{}
	defer func() { <-c.slots }()

	res, err := runWith(&child, cg, &childCfg, c.slots, nil)
	if err != nil {
		return nil, err
	}
	if rerr := res.Err(); rerr != nil {
		return nil, rerr
	}
	return res.Outputs, nil
}
