package exec

import (
	"encoding/json"
	"fmt"

	"github.com/loomengine/loom/pkg/loom"
)

// CompositeExecutor runs composite-kind nodes by executing the workflow
// graph embedded in the node's parameters as a child run. The child
// shares the parent's concurrency budget and cancel token; its sink
// outputs become the composite's result.
//
// Parameters: workflow (required), the embedded graph document.
type CompositeExecutor struct{}

// NewCompositeExecutor creates a composite executor.
func NewCompositeExecutor() *CompositeExecutor {
	return &CompositeExecutor{}
}

// Execute implements loom.Executor.
func (e *CompositeExecutor) Execute(ctx loom.Context, node loom.Node, inputs map[string]any) (loom.Outputs, error) {
	embedded := node.Parameters.Map("workflow")
	if embedded == nil {
		return nil, configError(node.ID, "no sub-workflow specified for composite node")
	}

	// Round-trip through JSON so the embedded document gets the same
	// parsing and port defaulting as a top-level graph.
	doc, err := json.Marshal(embedded)
	if err != nil {
		return nil, configError(node.ID, "unserializable sub-workflow: %v", err)
	}
	graph, err := loom.ParseJSON(doc)
	if err != nil {
		return nil, configError(node.ID, "invalid sub-workflow: %v", err)
	}

	runner := ctx.Subgraphs()
	if runner == nil {
		return nil, configError(node.ID, "composite node executed outside a run")
	}

	outs, err := runner.RunSubgraph(ctx, graph, inputs[loom.DefaultInputPort])
	if err != nil {
		return nil, fmt.Errorf("composite node %s: %w", node.ID, err)
	}

	// A single-sink child collapses to its one value; anything wider is
	// returned as the keyed map.
	if len(outs) == 1 {
		for _, v := range outs {
			return loom.Outputs{loom.DefaultOutputPort: v}, nil
		}
	}
	return loom.Outputs{loom.DefaultOutputPort: outs}, nil
}
