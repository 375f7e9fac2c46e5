package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// entryFuncName is the function the interpreted code must define:
//
//	func Run(input map[string]any) (any, error)
const entryFuncName = "Run"

// InterpreterRunner evaluates Go source in-process with yaegi. It serves
// the trusted TierNone only and refuses every policy that has not opted in
// to unsandboxed execution.
//
// The payload is decoded from JSON and handed to the code's Run function;
// the returned value is re-encoded as {"output": ...} on stdout, matching
// the subprocess wire protocol.
type InterpreterRunner struct{}

// NewInterpreterRunner creates an in-process interpreter runner.
func NewInterpreterRunner() *InterpreterRunner {
	return &InterpreterRunner{}
}

// Run implements Runner.
func (r *InterpreterRunner) Run(ctx context.Context, spec Spec, payload []byte, pol Policy) (*Result, error) {
	if pol.Tier != TierNone {
		return nil, newError(FaultPolicy, fmt.Errorf("interpreter runner only serves tier %q, got %q", TierNone, pol.Tier))
	}
	if !pol.AllowUnsandboxed {
		return nil, newError(FaultPolicy, ErrUnsandboxedRefused)
	}
	if spec.Code == "" {
		return nil, newError(FaultSetup, fmt.Errorf("interpreter runner requires code"))
	}

	start := time.Now()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, newError(FaultSetup, fmt.Errorf("load stdlib symbols: %w", err))
	}
	if _, err := i.Eval(spec.Code); err != nil {
		return nil, newError(FaultExecution, fmt.Errorf("interpret code: %w", err))
	}

	fn, err := i.Eval(entryFuncName)
	if err != nil {
		return nil, newError(FaultExecution, fmt.Errorf("code must define %s(input map[string]any) (any, error): %w", entryFuncName, err))
	}

	var input map[string]any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &input); err != nil {
			return nil, newError(FaultExecution, fmt.Errorf("decode input payload: %w", err))
		}
	}

	// The interpreter cannot be killed mid-call; TierNone is trusted code
	// by definition, so the timeout only bounds how long we wait.
	type callResult struct {
		value any
		err   error
	}
	done := make(chan callResult, 1)
	go func() {
		value, callErr := invokeEntry(fn, input)
		done <- callResult{value, callErr}
	}()

	timer := time.NewTimer(pol.Timeout())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, newError(FaultKilled, fmt.Errorf("cancelled: %w", ctx.Err()))
	case <-timer.C:
		return nil, newError(FaultTimeout, fmt.Errorf("exceeded %s wall-clock limit", pol.Timeout()))
	case res := <-done:
		if res.err != nil {
			return nil, newError(FaultExecution, res.err)
		}
		out, err := json.Marshal(map[string]any{"output": res.value})
		if err != nil {
			return nil, newError(FaultExecution, fmt.Errorf("encode output: %w", err))
		}
		return &Result{Stdout: out, Duration: time.Since(start)}, nil
	}
}

// invokeEntry calls the interpreted Run function via reflection, tolerating
// the (any, error) and (map[string]any, error) signatures.
func invokeEntry(fn reflect.Value, input map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreted code panicked: %v", r)
		}
	}()

	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", entryFuncName)
	}
	t := fn.Type()
	if t.NumIn() != 1 || t.NumOut() != 2 {
		return nil, fmt.Errorf("%s must take one argument and return (value, error)", entryFuncName)
	}

	in := reflect.ValueOf(input)
	if input == nil {
		in = reflect.MakeMap(t.In(0))
	}
	outs := fn.Call([]reflect.Value{in})

	if errVal := outs[1].Interface(); errVal != nil {
		if e, ok := errVal.(error); ok {
			return nil, e
		}
		return nil, fmt.Errorf("%v", errVal)
	}
	return outs[0].Interface(), nil
}
