package loom

// Outputs is the map of port name to value a node produces. An out-edge
// is active when its source port is present in the source node's outputs.
// Regular executors emit DefaultOutputPort; decision executors emit only
// the selected ports.
type Outputs map[string]any

// Executor runs a single node. Implementations are registered per node
// kind and must be safe for concurrent use: the scheduler calls Execute
// from multiple goroutines.
//
// Inputs are keyed by target port. A returned error is classified through
// errs.Categorize to decide retry behavior.
type Executor interface {
	Execute(ctx Context, node Node, inputs map[string]any) (Outputs, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx Context, node Node, inputs map[string]any) (Outputs, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx Context, node Node, inputs map[string]any) (Outputs, error) {
	return f(ctx, node, inputs)
}
