package loom

import (
	"time"

	"github.com/loomengine/loom/pkg/loom/checkpoint"
	"github.com/loomengine/loom/pkg/loom/errs"
	"github.com/loomengine/loom/pkg/loom/event"
	"github.com/loomengine/loom/pkg/loom/observability"
)

// SkipPolicy decides when a node with skipped predecessors runs.
type SkipPolicy int

const (
	// SkipAny skips a node when any active in-edge is unsatisfied.
	// This is the default.
	SkipAny SkipPolicy = iota

	// SkipAll runs a node as long as at least one in-edge is satisfied,
	// skipping only when every in-edge is inactive or skipped.
	SkipAll
)

// DefaultParallelism is the concurrency bound used when none is configured.
const DefaultParallelism = 4

// DefaultCheckpointInterval is how often a run checkpoints while nodes are
// in flight, when a checkpoint store is configured.
const DefaultCheckpointInterval = 10 * time.Second

// runConfig holds the execution configuration for one run.
type runConfig struct {
	parallelism        int
	skipPolicy         SkipPolicy
	executors          map[NodeKind]Executor
	retry              errs.RetryConfig
	input              any
	hasInput           bool
	checkpointStore    checkpoint.Store
	checkpointInterval time.Duration
	bus                *event.Bus
	metrics            observability.MetricsRecorder
	spans              observability.SpanManager
}

func defaultRunConfig() *runConfig {
	return &runConfig{
		parallelism:        DefaultParallelism,
		executors:          make(map[NodeKind]Executor),
		retry:              errs.DefaultRetry,
		checkpointInterval: DefaultCheckpointInterval,
		metrics:            observability.NoopMetrics{},
		spans:              observability.NoopSpanManager{},
	}
}

// RunOption configures a workflow run.
type RunOption func(*runConfig)

// WithParallelism bounds concurrent node executions. Values below 1 are
// clamped to 1. A composite node's child run shares the parent's budget.
func WithParallelism(n int) RunOption {
	return func(c *runConfig) {
		if n < 1 {
			n = 1
		}
		c.parallelism = n
	}
}

// WithSkipPolicy sets the skip propagation policy. Default is SkipAny.
func WithSkipPolicy(p SkipPolicy) RunOption {
	return func(c *runConfig) {
		c.skipPolicy = p
	}
}

// WithExecutor registers the executor for one node kind, replacing any
// previous registration for that kind.
func WithExecutor(kind NodeKind, ex Executor) RunOption {
	return func(c *runConfig) {
		if ex != nil {
			c.executors[kind] = ex
		}
	}
}

// WithExecutors registers executors for multiple node kinds.
func WithExecutors(executors map[NodeKind]Executor) RunOption {
	return func(c *runConfig) {
		for kind, ex := range executors {
			if ex != nil {
				c.executors[kind] = ex
			}
		}
	}
}

// WithRetryConfig sets the run-level retry configuration. Individual nodes
// override it through their max_retries and retry_backoff parameters.
func WithRetryConfig(cfg errs.RetryConfig) RunOption {
	return func(c *runConfig) {
		c.retry = cfg
	}
}

// WithInput supplies a run-level input value, delivered to every source
// node on its default input port.
func WithInput(input any) RunOption {
	return func(c *runConfig) {
		c.input = input
		c.hasInput = true
	}
}

// WithCheckpointStore enables checkpointing to the given store. Snapshots
// are saved on the checkpoint interval and at every node terminal event.
func WithCheckpointStore(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
	}
}

// WithCheckpointInterval sets how often in-flight runs checkpoint.
// Non-positive values disable interval checkpoints, leaving only the
// terminal-event saves.
func WithCheckpointInterval(d time.Duration) RunOption {
	return func(c *runConfig) {
		c.checkpointInterval = d
	}
}

// WithEventBus publishes lifecycle events to the given bus.
func WithEventBus(bus *event.Bus) RunOption {
	return func(c *runConfig) {
		c.bus = bus
	}
}

// WithMetrics sets the metrics recorder. Default is no-op.
func WithMetrics(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpans sets the trace span manager. Default is no-op.
func WithSpans(s observability.SpanManager) RunOption {
	return func(c *runConfig) {
		if s != nil {
			c.spans = s
		}
	}
}
