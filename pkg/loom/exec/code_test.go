package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomengine/loom/pkg/loom"
	"github.com/loomengine/loom/pkg/loom/errs"
	"github.com/loomengine/loom/pkg/loom/sandbox"
)

// stubRunner records the call and replies with canned stdout.
type stubRunner struct {
	spec    sandbox.Spec
	payload []byte
	pol     sandbox.Policy
	stdout  []byte
	err     error
}

func (s *stubRunner) Run(ctx context.Context, spec sandbox.Spec, payload []byte, pol sandbox.Policy) (*sandbox.Result, error) {
	s.spec = spec
	s.payload = payload
	s.pol = pol
	if s.err != nil {
		return nil, s.err
	}
	return &sandbox.Result{Stdout: s.stdout}, nil
}

func codeRunners(r sandbox.Runner) sandbox.RunnerSet {
	return sandbox.RunnerSet{None: r, Lightweight: r, Isolated: r}
}

func TestCodeExecutor_WireProtocol(t *testing.T) {
	stub := &stubRunner{stdout: []byte(`{"output": {"doubled": 84}}`)}
	ex := NewCodeExecutor(codeRunners(stub))

	outs, err := ex.Execute(testCtx(t), testNode(loom.KindCustomCode, map[string]any{
		"command": []string{"python3", "transform.py"},
		"workdir": "/tmp/job",
	}), map[string]any{loom.DefaultInputPort: map[string]any{"value": 42}})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"doubled": float64(84)}, outs[loom.DefaultOutputPort])
	assert.Equal(t, []string{"python3", "transform.py"}, stub.spec.Command)
	assert.Equal(t, "/tmp/job", stub.spec.Dir)
	// The node input rides stdin as JSON.
	assert.JSONEq(t, `{"value": 42}`, string(stub.payload))
}

func TestCodeExecutor_ErrorProtocol(t *testing.T) {
	stub := &stubRunner{stdout: []byte(`{"error": "division by zero"}`)}
	ex := NewCodeExecutor(codeRunners(stub))

	_, err := ex.Execute(testCtx(t), testNode(loom.KindCustomCode, nil), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
	assert.Equal(t, errs.CategoryPermanent, errs.Categorize(err))
}

func TestCodeExecutor_RawStdoutPassesThrough(t *testing.T) {
	stub := &stubRunner{stdout: []byte("plain text result\n")}
	ex := NewCodeExecutor(codeRunners(stub))

	outs, err := ex.Execute(testCtx(t), testNode(loom.KindCustomCode, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text result", outs[loom.DefaultOutputPort])
}

func TestCodeExecutor_TimeoutParamTightensPolicy(t *testing.T) {
	stub := &stubRunner{stdout: []byte(`{"output": 1}`)}
	ex := NewCodeExecutor(codeRunners(stub))

	_, err := ex.Execute(testCtx(t), testNode(loom.KindCustomCode, map[string]any{
		"timeout": "5s",
	}), nil)
	require.NoError(t, err)
	assert.Equal(t, "5s", stub.pol.Limits.WallTimeout.String())
}

func TestCodeExecutor_SandboxFaultPassesThrough(t *testing.T) {
	fault := &sandbox.Error{Kind: sandbox.FaultTimeout, Err: context.DeadlineExceeded}
	stub := &stubRunner{err: fault}
	ex := NewCodeExecutor(codeRunners(stub))

	_, err := ex.Execute(testCtx(t), testNode(loom.KindCustomCode, nil), nil)
	require.Error(t, err)
	// Timeouts stay transient so the scheduler retries them.
	assert.Equal(t, errs.CategoryTransient, errs.Categorize(err))
}

func TestCodeExecutor_MissingTierRunner(t *testing.T) {
	ex := NewCodeExecutor(sandbox.RunnerSet{})
	_, err := ex.Execute(testCtx(t), testNode(loom.KindCustomCode, nil), nil)
	require.Error(t, err)
	var serr *sandbox.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, sandbox.FaultPolicy, serr.Kind)
}
