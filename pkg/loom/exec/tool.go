package exec

import (
	"context"
	"fmt"

	"github.com/loomengine/loom/pkg/loom"
	"github.com/loomengine/loom/pkg/loom/registry"
)

// Tool is an external capability callable from tool-kind nodes.
// Implementations must be safe for concurrent use.
type Tool interface {
	// Name is the identifier tool nodes reference.
	Name() string

	// Call invokes the tool with the node's input and parameters.
	Call(ctx context.Context, input any, params map[string]any) (any, error)
}

// ToolFunc adapts a function to the Tool interface.
type ToolFunc struct {
	name string
	fn   func(ctx context.Context, input any, params map[string]any) (any, error)
}

// NewTool creates a Tool from a function.
func NewTool(name string, fn func(ctx context.Context, input any, params map[string]any) (any, error)) ToolFunc {
	return ToolFunc{name: name, fn: fn}
}

// Name implements Tool.
func (t ToolFunc) Name() string { return t.name }

// Call implements Tool.
func (t ToolFunc) Call(ctx context.Context, input any, params map[string]any) (any, error) {
	return t.fn(ctx, input, params)
}

// ToolRegistry maps tool names to implementations.
type ToolRegistry struct {
	reg *registry.Registry[string, Tool]
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{reg: registry.New[string, Tool]()}
}

// Register adds a tool under its own name, replacing any previous
// registration.
func (r *ToolRegistry) Register(tool Tool) {
	r.reg.Register(tool.Name(), tool)
}

// Lookup returns the named tool.
func (r *ToolRegistry) Lookup(name string) (Tool, bool) {
	return r.reg.Lookup(name)
}

// Names lists registered tool names.
func (r *ToolRegistry) Names() []string {
	return r.reg.Keys()
}

// ToolExecutor runs tool-kind nodes by dispatching to a named tool.
//
// Parameters: tool_name (required), tool_parameters.
type ToolExecutor struct {
	tools *ToolRegistry
}

// NewToolExecutor creates a tool executor over the given registry.
func NewToolExecutor(tools *ToolRegistry) *ToolExecutor {
	return &ToolExecutor{tools: tools}
}

// Execute implements loom.Executor.
func (e *ToolExecutor) Execute(ctx loom.Context, node loom.Node, inputs map[string]any) (loom.Outputs, error) {
	name := node.Parameters.String("tool_name", "")
	if name == "" {
		return nil, configError(node.ID, "no tool specified for tool node")
	}
	if e.tools == nil {
		return nil, configError(node.ID, "no tool registry configured")
	}
	tool, ok := e.tools.Lookup(name)
	if !ok {
		return nil, configError(node.ID, "tool %q not found", name)
	}

	result, err := tool.Call(ctx, inputs[loom.DefaultInputPort], node.Parameters.Map("tool_parameters"))
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", name, err)
	}
	return loom.Outputs{loom.DefaultOutputPort: result}, nil
}
