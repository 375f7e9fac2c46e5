// Package observability provides structured logging, metrics, and tracing
// for the workflow engine.
//
//   - Logging via slog (Go stdlib), nil-safe helpers
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// Everything is opt-in; the no-op implementations cost nothing when disabled.
package observability

import (
	"log/slog"
)

// EnrichLogger returns a logger carrying run, node, and attempt fields.
func EnrichLogger(logger *slog.Logger, runID, nodeID string, attempt int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
		slog.Int("attempt", attempt),
	)
}

// LogRunStart logs the start of a workflow run.
func LogRunStart(logger *slog.Logger, runID string, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("run starting",
		slog.String("run_id", runID),
		slog.Int("nodes", nodeCount),
	)
}

// LogRunComplete logs a terminal run outcome.
func LogRunComplete(logger *slog.Logger, runID, outcome string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("run finished",
		slog.String("run_id", runID),
		slog.String("outcome", outcome),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeStart logs node dispatch.
func LogNodeStart(logger *slog.Logger, nodeID string, attempt int) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
		slog.Int("attempt", attempt),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node succeeded",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs a node failure.
func LogNodeError(logger *slog.Logger, nodeID string, err error, attempts int) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
		slog.Int("attempts", attempts),
	)
}

// LogNodeSkipped logs a node skipped before dispatch.
func LogNodeSkipped(logger *slog.Logger, nodeID, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("node skipped",
		slog.String("node_id", nodeID),
		slog.String("reason", reason),
	)
}

// LogCheckpoint logs a checkpoint save.
func LogCheckpoint(logger *slog.Logger, runID string, generation uint64, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("run_id", runID),
		slog.Uint64("generation", generation),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs a checkpoint failure. Non-fatal: the run keeps
// going in memory.
func LogCheckpointError(logger *slog.Logger, runID, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.String("run_id", runID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogSandboxKill logs the forced termination of an isolated execution.
func LogSandboxKill(logger *slog.Logger, nodeID, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("sandboxed execution terminated",
		slog.String("node_id", nodeID),
		slog.String("reason", reason),
	)
}
