package loom

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/loomengine/loom/pkg/loom/sandbox"
)

// Context provides execution context to node executors.
// It extends context.Context with engine services and run metadata.
//
// Context is immutable after creation. The scheduler creates derived
// contexts per node with updated NodeID and enriched logger.
type Context interface {
	context.Context

	// Services

	// Logger returns the configured logger, enriched with run and node
	// context. Never returns nil.
	Logger() *slog.Logger

	// Subgraphs returns the runner composite executors use to execute
	// an embedded graph as a child run, or nil outside a run.
	Subgraphs() SubgraphRunner

	// Metadata

	// RunID returns the unique identifier for this run.
	// Auto-generated if not configured.
	RunID() string

	// NodeID returns the node being executed.
	// Empty string before execution starts.
	NodeID() string

	// Attempt returns the retry attempt number (1 = first attempt).
	Attempt() int

	// Policy returns the graph's sandbox policy.
	Policy() sandbox.Policy
}

// SubgraphRunner executes an embedded graph as a child run sharing the
// parent's concurrency budget. The returned map is the child run's sink
// outputs keyed "nodeID.port".
type SubgraphRunner interface {
	RunSubgraph(ctx Context, graph *Graph, input any) (map[string]any, error)
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger    *slog.Logger
	subgraphs SubgraphRunner
	runID     string
	nodeID    string
	attempt   int
	policy    sandbox.Policy
	policySet bool
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// Subgraphs returns the child-run runner.
func (c *executionContext) Subgraphs() SubgraphRunner {
	return c.subgraphs
}

// RunID returns the run identifier.
func (c *executionContext) RunID() string {
	return c.runID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// Attempt returns the retry attempt number.
func (c *executionContext) Attempt() int {
	return c.attempt
}

// Policy returns the sandbox policy.
func (c *executionContext) Policy() sandbox.Policy {
	return c.policy
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// It is enriched with run_id, node_id, and attempt during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContextRunID sets the run identifier. A UUID is generated if unset.
// This is the identity used for logging, events, and checkpoints.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// WithPolicy sets the sandbox policy the run executes under, overriding
// the graph's declared environment.
func WithPolicy(pol sandbox.Policy) ContextOption {
	return func(c *executionContext) {
		c.policy = pol
		c.policySet = true
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := loom.NewContext(context.Background(),
//	    loom.WithLogger(myLogger),
//	    loom.WithContextRunID("run-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
		attempt: 1,
		policy:  sandbox.Policy{Tier: sandbox.TierLightweight},
	}
	for _, opt := range opts {
		opt(ec)
	}
	return ec
}

// forNode returns a derived context for one node execution attempt.
func (c *executionContext) forNode(base context.Context, nodeID string, attempt int, subgraphs SubgraphRunner) *executionContext {
	return &executionContext{
		Context:   base,
		logger:    c.logger.With("run_id", c.runID, "node_id", nodeID, "attempt", attempt),
		subgraphs: subgraphs,
		runID:     c.runID,
		nodeID:    nodeID,
		attempt:   attempt,
		policy:    c.policy,
	}
}

// asExecutionContext normalizes any Context into the internal form so the
// scheduler can derive node contexts from caller-supplied implementations.
func asExecutionContext(ctx Context) *executionContext {
	if ec, ok := ctx.(*executionContext); ok {
		return ec
	}
	return &executionContext{
		Context: ctx,
		logger:  ctx.Logger(),
		runID:   ctx.RunID(),
		attempt: 1,
		policy:  ctx.Policy(),
	}
}
