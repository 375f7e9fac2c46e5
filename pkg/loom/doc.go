/*
Package loom executes workflow graphs of AI and automation nodes.

# Overview

loom is a Go library for running directed acyclic graphs where nodes
perform work (LLM calls, decisions, sandboxed code, storage operations,
tools) and edges carry values between named ports. Runs are concurrent
up to a configurable bound, checkpoint their progress, and resume after
a crash without repeating finished work.

Graphs are data, not code: they are parsed from JSON or YAML documents
produced by an editor or written by hand, validated, compiled, and run.

# Basic Usage

Parse a graph, compile it, and run it:

	g, err := loom.ParseYAML(doc)
	if err != nil {
	    log.Fatal(err)
	}

	ctx := loom.NewContext(context.Background())
	result, err := loom.Run(ctx, g,
	    loom.WithExecutors(exec.DefaultRegistry(deps)),
	    loom.WithInput("hello"),
	    loom.WithParallelism(8))
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(result.Outputs) // sink outputs keyed "nodeID.port"

# Branching

Decision nodes evaluate a boolean expression against their input and
activate exactly one output port. Edges from inactive ports do not fire,
and the nodes behind them are skipped rather than failed. Skips cascade,
so an entire inactive branch settles without executing.

# Checkpointing and Resume

With a checkpoint store configured, the engine snapshots run state on an
interval and at every node completion:

	store, _ := checkpoint.NewFileStore(dir)
	result, err := loom.Run(ctx, g,
	    loom.WithCheckpointStore(store), ...)

After an interruption, Resume continues from the latest snapshot.
Succeeded nodes keep their outputs; unfinished work runs again:

	result, err := loom.Resume(ctx, g, store, runID, ...)

A snapshot only ever resumes the graph it was taken against; structural
edits to the workflow invalidate old checkpoints.

# Cancellation

Cancelling the run context stops dispatching new nodes, forcibly
terminates sandboxed executions, and waits for in-flight nodes to drain
before returning an OutcomeCancelled result. The Controller type wraps
this lifecycle for callers managing multiple concurrent runs.
*/
package loom
