package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolated(limits Limits) Policy {
	return Policy{Tier: TierIsolated, Limits: limits}
}

func TestContainerBuildArgsDefaults(t *testing.T) {
	r := NewContainerRunner(nil)

	args := r.buildArgs(Spec{Command: []string{"python3", "wrapper.py"}}, isolated(Limits{}), "loom-test")

	assert.Equal(t, []string{
		"docker", "run", "--rm", "-i", "--name", "loom-test", "--workdir", "/work",
		"--network", "none",
		"ubuntu:24.04",
		"python3", "wrapper.py",
	}, args)
}

func TestContainerBuildArgsLimits(t *testing.T) {
	r := NewContainerRunner(nil, WithImage("python:3.12-slim"), WithEngine("podman"))

	args := r.buildArgs(Spec{
		Command: []string{"python3", "-"},
		Env:     []string{"MODEL=claude", "TOKEN=x"},
	}, isolated(Limits{
		MemoryBytes:   512 << 20,
		CPUs:          1.5,
		NetworkEgress: true,
	}), "loom-test")

	assert.Equal(t, "podman", args[0])
	assert.NotContains(t, args, "--network")
	assert.Contains(t, args, "--memory")
	assert.Contains(t, args, "536870912")
	assert.Contains(t, args, "--cpus")
	assert.Contains(t, args, "1.5")
	assert.Contains(t, args, "-e")
	assert.Contains(t, args, "MODEL=claude")
	assert.Contains(t, args, "python:3.12-slim")
	assert.Equal(t, "-", args[len(args)-1])
}

func TestContainerWrongTier(t *testing.T) {
	r := NewContainerRunner(nil)

	_, err := r.Run(context.Background(), Spec{Command: []string{"true"}}, nil, lightweight(time.Second))

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, FaultPolicy, serr.Kind)
}

func TestContainerMissingCommand(t *testing.T) {
	r := NewContainerRunner(nil)

	_, err := r.Run(context.Background(), Spec{}, nil, isolated(Limits{WallTimeout: time.Second}))

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, FaultSetup, serr.Kind)
}

func TestContainerMissingEngineIsSetupFault(t *testing.T) {
	r := NewContainerRunner(nil, WithEngine("/nonexistent/docker"))

	_, err := r.Run(context.Background(), Spec{Command: []string{"true"}},
		nil, isolated(Limits{WallTimeout: time.Second}))
	require.Error(t, err)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, FaultSetup, serr.Kind)
}

func TestKillOnFault(t *testing.T) {
	// Killing the engine client leaves the daemon-owned container alive,
	// so those faults trigger a follow-up engine kill.
	assert.True(t, killOnFault(newError(FaultTimeout, assert.AnError)))
	assert.True(t, killOnFault(newError(FaultKilled, assert.AnError)))

	// The engine exiting on its own means the container is already gone.
	assert.False(t, killOnFault(newError(FaultExecution, assert.AnError)))
	assert.False(t, killOnFault(newError(FaultSetup, assert.AnError)))
	assert.False(t, killOnFault(assert.AnError))
}

func TestReclassifyContainerError(t *testing.T) {
	exec125 := newError(FaultExecution, assert.AnError)
	assert.Same(t, exec125, reclassifyContainerError(exec125))

	engineFail := newError(FaultExecution, errWithMsg("exit status 125: engine down"))
	out := reclassifyContainerError(engineFail)
	var serr *Error
	require.ErrorAs(t, out, &serr)
	assert.Equal(t, FaultSetup, serr.Kind)

	timeout := newError(FaultTimeout, assert.AnError)
	assert.Same(t, timeout, reclassifyContainerError(timeout))
}

type errWithMsg string

func (e errWithMsg) Error() string { return string(e) }
