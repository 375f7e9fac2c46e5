package exec

import (
	"github.com/loomengine/loom/pkg/loom"
	"github.com/loomengine/loom/pkg/loom/expr"
)

// DecisionExecutor runs decision-kind nodes: it evaluates a boolean
// condition against the node's input and activates exactly one output
// port, passing the input value through on it. Edges from the other port
// never fire.
//
// Parameters: condition (required), true_port, false_port. The condition
// references the input as "input", with dotted paths into structured
// values ("input.score >= 0.8").
type DecisionExecutor struct {
	eval *expr.Evaluator
}

// DecisionOption configures a DecisionExecutor.
type DecisionOption func(*DecisionExecutor)

// WithEvaluator substitutes a customized condition evaluator.
func WithEvaluator(eval *expr.Evaluator) DecisionOption {
	return func(e *DecisionExecutor) {
		if eval != nil {
			e.eval = eval
		}
	}
}

// NewDecisionExecutor creates a decision executor with the default
// condition language.
func NewDecisionExecutor(opts ...DecisionOption) *DecisionExecutor {
	e := &DecisionExecutor{eval: expr.New()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute implements loom.Executor.
func (e *DecisionExecutor) Execute(ctx loom.Context, node loom.Node, inputs map[string]any) (loom.Outputs, error) {
	value, ok := inputs[loom.DefaultInputPort]
	if !ok {
		return nil, configError(node.ID, "no input value provided to decision node")
	}
	condition := node.Parameters.String("condition", "")
	if condition == "" {
		return nil, configError(node.ID, "no condition specified for decision node")
	}

	result, err := e.eval.Evaluate(condition, map[string]any{"input": value})
	if err != nil {
		return nil, configError(node.ID, "condition %q: %v", condition, err)
	}

	port := node.Parameters.String("true_port", "true")
	if !result {
		port = node.Parameters.String("false_port", "false")
	}
	ctx.Logger().Debug("branch selected", "condition", condition, "port", port)
	return loom.Outputs{port: value}, nil
}
