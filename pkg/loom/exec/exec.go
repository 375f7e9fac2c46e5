// Package exec provides the built-in executors for every node kind. Each
// executor adapts one capability (model invocation, branching, sub-graph
// execution, storage, sandboxed code, external tools) to the engine's
// execution contract; they share nothing but that contract.
package exec

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/loomengine/loom/pkg/loom"
	"github.com/loomengine/loom/pkg/loom/errs"
)

// ErrOutputValidation indicates an executor result failed its declared
// output shape.
var ErrOutputValidation = errors.New("output validation failed")

// Deps carries the external collaborators the built-in executors call out
// to. Zero fields disable the corresponding node kinds at run start, not
// mid-run.
type Deps struct {
	LLM     LLMDeps
	Storage StorageDeps
	Code    CodeDeps
	Tools   *ToolRegistry
}

// DefaultRegistry builds the executor set for all node kinds, each wrapped
// with declared-output-shape validation.
func DefaultRegistry(deps Deps) map[loom.NodeKind]loom.Executor {
	reg := map[loom.NodeKind]loom.Executor{
		loom.KindLLM:        NewLLMExecutor(deps.LLM.Client),
		loom.KindDecision:   NewDecisionExecutor(),
		loom.KindComposite:  NewCompositeExecutor(),
		loom.KindStorage:    NewStorageExecutor(deps.Storage.KV, deps.Storage.Vector),
		loom.KindCustomCode: NewCodeExecutor(deps.Code.Runners),
		loom.KindTool:       NewToolExecutor(deps.Tools),
	}
	for kind, ex := range reg {
		reg[kind] = WithOutputValidation(ex)
	}
	return reg
}

// WithOutputValidation wraps an executor so that, when the node declares
// an expected_outputs parameter, every listed port must be present in the
// result. A missing port fails the node permanently rather than letting
// malformed structured output flow downstream.
func WithOutputValidation(ex loom.Executor) loom.Executor {
	return loom.ExecutorFunc(func(ctx loom.Context, node loom.Node, inputs map[string]any) (loom.Outputs, error) {
		outs, err := ex.Execute(ctx, node, inputs)
		if err != nil {
			return nil, err
		}
		expected := node.Parameters.StringSlice("expected_outputs", nil)
		if len(expected) == 0 {
			return outs, nil
		}
		var missing []string
		for _, port := range expected {
			if _, ok := outs[port]; !ok {
				missing = append(missing, port)
			}
		}
		if len(missing) > 0 {
			return nil, errs.Permanent(
				fmt.Errorf("%w: missing port(s) %s", ErrOutputValidation, strings.Join(missing, ", ")),
				node.ID)
		}
		return outs, nil
	})
}

// configError is a permanent node misconfiguration. Retrying cannot fix a
// bad parameter.
func configError(nodeID, format string, args ...any) error {
	return errs.Permanent(fmt.Errorf(format, args...), nodeID)
}

// stringArg reads a string from an input port, falling back to the node
// parameter of the same name.
func stringArg(node loom.Node, inputs map[string]any, name, fallback string) string {
	if v, ok := inputs[name]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return node.Parameters.String(name, fallback)
}

var placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)

// interpolate substitutes {port} placeholders in a template with the
// stringified input values. Substitution is a single pass over the
// template, so braces inside input values are never re-expanded and
// unknown placeholders stay verbatim.
func interpolate(template string, inputs map[string]any) string {
	if !strings.Contains(template, "{") {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := inputs[name]; ok {
			return fmt.Sprintf("%v", value)
		}
		return match
	})
}
