package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContainerRunner serves TierIsolated by wrapping the command in a
// `docker run` invocation with resource limits and a default-deny network,
// then delegating process management to a SubprocessRunner. The container
// is started with --rm and -i so the payload still flows over stdin and
// nothing is left behind after the run.
type ContainerRunner struct {
	sub     *SubprocessRunner
	engine  string
	image   string
	workdir string
}

// ContainerOption configures a ContainerRunner.
type ContainerOption func(*ContainerRunner)

// WithEngine overrides the container engine binary (default "docker").
func WithEngine(engine string) ContainerOption {
	return func(r *ContainerRunner) { r.engine = engine }
}

// WithImage overrides the container image (default "ubuntu:24.04").
func WithImage(image string) ContainerOption {
	return func(r *ContainerRunner) { r.image = image }
}

// WithContainerWorkdir overrides the working directory inside the
// container (default "/work").
func WithContainerWorkdir(dir string) ContainerOption {
	return func(r *ContainerRunner) { r.workdir = dir }
}

// NewContainerRunner creates a container runner that delegates to sub for
// process supervision. If sub is nil a default SubprocessRunner is used.
func NewContainerRunner(sub *SubprocessRunner, opts ...ContainerOption) *ContainerRunner {
	if sub == nil {
		sub = NewSubprocessRunner()
	}
	r := &ContainerRunner{
		sub:     sub,
		engine:  "docker",
		image:   "ubuntu:24.04",
		workdir: "/work",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run implements Runner.
func (r *ContainerRunner) Run(ctx context.Context, spec Spec, payload []byte, pol Policy) (*Result, error) {
	if pol.Tier != TierIsolated {
		return nil, newError(FaultPolicy, fmt.Errorf("container runner only serves tier %q, got %q", TierIsolated, pol.Tier))
	}
	if len(spec.Command) == 0 {
		return nil, newError(FaultSetup, fmt.Errorf("container runner requires a command"))
	}

	// The name lets the timeout path reach the daemon-owned container
	// after the engine client process is gone.
	name := "loom-" + uuid.NewString()
	wrapped := Spec{
		Command: r.buildArgs(spec, pol, name),
		Dir:     spec.Dir,
	}
	// The child environment is passed via -e flags inside buildArgs, not
	// to the engine process itself.

	// Delegate supervision under a TierLightweight policy so the engine
	// process gets the same kill-on-timeout and kill-on-cancel treatment
	// as any subprocess. The wall limit carries over.
	engPol := Policy{
		Tier:   TierLightweight,
		Limits: Limits{WallTimeout: pol.Timeout()},
	}
	res, err := r.sub.Run(ctx, wrapped, payload, engPol)
	if err != nil {
		if killOnFault(err) {
			r.kill(name)
		}
		return res, reclassifyContainerError(err)
	}
	return res, nil
}

// killOnFault reports whether the engine client process was killed,
// leaving the container itself running in the daemon.
func killOnFault(err error) bool {
	var serr *Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Kind == FaultTimeout || serr.Kind == FaultKilled
}

// kill asks the engine to stop the named container. Best effort; --rm
// removes it once stopped.
func (r *ContainerRunner) kill(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, r.engine, "kill", name).Run()
}

// buildArgs assembles the docker-run argv for a spec under a policy.
func (r *ContainerRunner) buildArgs(spec Spec, pol Policy, name string) []string {
	args := []string{r.engine, "run", "--rm", "-i", "--name", name, "--workdir", r.workdir}

	if !pol.Limits.NetworkEgress {
		args = append(args, "--network", "none")
	}
	if pol.Limits.MemoryBytes > 0 {
		args = append(args, "--memory", strconv.FormatInt(pol.Limits.MemoryBytes, 10))
	}
	if pol.Limits.CPUs > 0 {
		args = append(args, "--cpus", strconv.FormatFloat(pol.Limits.CPUs, 'f', -1, 64))
	}
	for _, kv := range spec.Env {
		args = append(args, "-e", kv)
	}

	args = append(args, r.image)
	args = append(args, spec.Command...)
	return args
}

// reclassifyContainerError refines faults the subprocess layer reports for
// the engine process. An engine that is not installed is a setup fault of
// the isolated tier, and engine "exec failed" exit codes map to setup too.
func reclassifyContainerError(err error) error {
	var serr *Error
	if !errors.As(err, &serr) {
		return err
	}
	if serr.Kind == FaultSetup {
		return err
	}
	if serr.Kind == FaultExecution {
		// 125 engine failure, 126 not executable, 127 command not found.
		msg := serr.Err.Error()
		for _, code := range []string{"exit status 125", "exit status 126", "exit status 127"} {
			if strings.Contains(msg, code) {
				return newError(FaultSetup, serr.Err)
			}
		}
	}
	return err
}
