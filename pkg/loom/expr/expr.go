// Package expr evaluates the small boolean condition language used by
// decision nodes.
//
// Supported forms: comparison operators (==, !=, <, >, <=, >=, contains),
// boolean combinators (and, or, not, !), quoted string / number / bool
// literals, and variable references with dotted paths into nested maps
// (e.g. "input.score >= 0.8").
package expr

import (
	"fmt"
	"strings"
)

// BinaryOp compares two resolved values.
type BinaryOp func(left, right any) bool

// Evaluator evaluates condition expressions, optionally extended with
// custom operators.
type Evaluator struct {
	customOps map[string]BinaryOp
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithOperator registers a custom binary operator. The name must not
// collide with a built-in operator.
func WithOperator(name string, fn BinaryOp) Option {
	return func(e *Evaluator) {
		if e.customOps == nil {
			e.customOps = make(map[string]BinaryOp)
		}
		e.customOps[name] = fn
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Eval evaluates a condition with the default evaluator.
func Eval(condition string, vars map[string]any) (bool, error) {
	return New().Evaluate(condition, vars)
}

// Evaluate evaluates a condition against the provided variables.
// An empty condition is false.
func (e *Evaluator) Evaluate(condition string, vars map[string]any) (bool, error) {
	return e.eval(strings.TrimSpace(condition), vars)
}

// ordered longest-first so ">=" wins over ">".
var builtinOps = []struct {
	token   string
	compare BinaryOp
}{
	{"==", func(l, r any) bool { return stringify(l) == stringify(r) }},
	{"!=", func(l, r any) bool { return stringify(l) != stringify(r) }},
	{">=", func(l, r any) bool { return ToFloat64(l) >= ToFloat64(r) }},
	{"<=", func(l, r any) bool { return ToFloat64(l) <= ToFloat64(r) }},
	{">", func(l, r any) bool { return ToFloat64(l) > ToFloat64(r) }},
	{"<", func(l, r any) bool { return ToFloat64(l) < ToFloat64(r) }},
	{" contains ", func(l, r any) bool { return strings.Contains(stringify(l), stringify(r)) }},
}

func (e *Evaluator) eval(cond string, vars map[string]any) (bool, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return false, nil
	}

	if rest, ok := strings.CutPrefix(cond, "not "); ok {
		inner, err := e.eval(rest, vars)
		return !inner, err
	}
	if rest, ok := strings.CutPrefix(cond, "!"); ok && !strings.HasPrefix(rest, "=") {
		inner, err := e.eval(rest, vars)
		return !inner, err
	}

	if parts := strings.SplitN(cond, " and ", 2); len(parts) == 2 {
		left, err := e.eval(parts[0], vars)
		if err != nil {
			return false, err
		}
		right, err := e.eval(parts[1], vars)
		if err != nil {
			return false, err
		}
		return left && right, nil
	}

	if parts := strings.SplitN(cond, " or ", 2); len(parts) == 2 {
		left, err := e.eval(parts[0], vars)
		if err != nil {
			return false, err
		}
		right, err := e.eval(parts[1], vars)
		if err != nil {
			return false, err
		}
		return left || right, nil
	}

	for _, op := range builtinOps {
		if parts := strings.SplitN(cond, op.token, 2); len(parts) == 2 {
			left := Resolve(parts[0], vars)
			right := Resolve(parts[1], vars)
			return op.compare(left, right), nil
		}
	}

	for name, fn := range e.customOps {
		if parts := strings.SplitN(cond, " "+name+" ", 2); len(parts) == 2 {
			return fn(Resolve(parts[0], vars), Resolve(parts[1], vars)), nil
		}
	}

	// Bare value: truthiness.
	return IsTruthy(Resolve(cond, vars)), nil
}

func stringify(v any) string {
	return fmt.Sprintf("%v", v)
}
