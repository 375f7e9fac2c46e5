package exec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/loomengine/loom/pkg/loom"
	"github.com/loomengine/loom/pkg/loom/sandbox"
)

// CodeDeps are the isolation boundaries for custom-code nodes.
type CodeDeps struct {
	Runners sandbox.RunnerSet
}

// CodeExecutor runs custom_code-kind nodes inside the sandbox tier the
// run's policy selects. The node's input arrives on the child's stdin as
// JSON; the result leaves on stdout as {"output": ...} or {"error": ...}.
//
// Parameters: code (interpreted tier) or command (subprocess/container
// tiers), workdir, timeout.
type CodeExecutor struct {
	runners sandbox.RunnerSet
}

// NewCodeExecutor creates a code executor over the given tier mapping.
func NewCodeExecutor(runners sandbox.RunnerSet) *CodeExecutor {
	return &CodeExecutor{runners: runners}
}

// Execute implements loom.Executor.
func (e *CodeExecutor) Execute(ctx loom.Context, node loom.Node, inputs map[string]any) (loom.Outputs, error) {
	pol := ctx.Policy()
	runner, err := e.runners.For(pol.Tier)
	if err != nil {
		return nil, err
	}

	spec := sandbox.Spec{
		Code:    node.Parameters.String("code", ""),
		Command: node.Parameters.StringSlice("command", nil),
		Dir:     node.Parameters.String("workdir", ""),
	}
	if d := node.Parameters.Duration("timeout", 0); d > 0 {
		pol.Limits.WallTimeout = d
	}

	payload, err := json.Marshal(inputs[loom.DefaultInputPort])
	if err != nil {
		return nil, configError(node.ID, "unserializable input: %v", err)
	}

	res, err := runner.Run(ctx, spec, payload, pol)
	if err != nil {
		return nil, err
	}
	return decodeCodeResult(node.ID, res.Stdout)
}

// decodeCodeResult parses the stdin/stdout wire protocol. Output that is
// not a protocol document passes through as a raw string.
func decodeCodeResult(nodeID string, stdout []byte) (loom.Outputs, error) {
	trimmed := bytes.TrimSpace(stdout)
	var wire struct {
		Output any    `json:"output"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return loom.Outputs{loom.DefaultOutputPort: string(trimmed)}, nil
	}
	if wire.Error != "" {
		return nil, fmt.Errorf("code node %s: %w", nodeID,
			&sandbox.Error{Kind: sandbox.FaultExecution, Err: codeError(wire.Error)})
	}
	return loom.Outputs{loom.DefaultOutputPort: wire.Output}, nil
}

type codeError string

func (e codeError) Error() string { return string(e) }
