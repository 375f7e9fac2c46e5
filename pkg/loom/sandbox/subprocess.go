package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// SubprocessRunner executes commands as restricted child processes.
//
// The child runs in its own process group with a scrubbed environment (only
// what the Spec provides). On timeout or cancellation the whole group is
// SIGKILLed and reaped before Run returns, so nothing is left behind.
type SubprocessRunner struct {
	maxOutputBytes int
}

// SubprocessOption configures a SubprocessRunner.
type SubprocessOption func(*SubprocessRunner)

// WithMaxOutput caps captured stdout/stderr. Default 4 MiB.
func WithMaxOutput(n int) SubprocessOption {
	return func(r *SubprocessRunner) {
		if n > 0 {
			r.maxOutputBytes = n
		}
	}
}

// NewSubprocessRunner creates a subprocess-based sandbox runner.
func NewSubprocessRunner(opts ...SubprocessOption) *SubprocessRunner {
	r := &SubprocessRunner{maxOutputBytes: 4 << 20}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run implements Runner.
func (r *SubprocessRunner) Run(ctx context.Context, spec Spec, payload []byte, pol Policy) (*Result, error) {
	if pol.Tier == TierNone && !pol.AllowUnsandboxed {
		return nil, newError(FaultPolicy, ErrUnsandboxedRefused)
	}
	if len(spec.Command) == 0 {
		return nil, newError(FaultSetup, fmt.Errorf("subprocess runner requires a command"))
	}

	start := time.Now()

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env // never inherits the parent environment
	cmd.Stdin = bytes.NewReader(payload)

	stdout := newCappedBuffer(r.maxOutputBytes)
	stderr := newCappedBuffer(r.maxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Own process group so the kill reaches grandchildren too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, newError(FaultSetup, fmt.Errorf("start: %w", err))
	}
	pgid := cmd.Process.Pid

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	timeout := pol.Timeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		killGroup(pgid)
		<-waitErr // reap before returning: cancellation must not orphan
		return nil, newError(FaultKilled, fmt.Errorf("cancelled: %w", ctx.Err()))

	case <-timer.C:
		killGroup(pgid)
		<-waitErr
		return nil, newError(FaultTimeout, fmt.Errorf("exceeded %s wall-clock limit", timeout))

	case err := <-waitErr:
		result := &Result{
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
			Duration: time.Since(start),
		}
		if err != nil {
			if isOOMKill(err) {
				return nil, newError(FaultResourceExceeded, fmt.Errorf("terminated by resource limit: %w", err))
			}
			return nil, newError(FaultExecution, fmt.Errorf("%w: %s", err, stderrTail(stderr.Bytes())))
		}
		return result, nil
	}
}

// killGroup SIGKILLs an entire process group.
func killGroup(pgid int) {
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}

// isOOMKill recognizes processes terminated by a memory ceiling (the
// container runtime's OOM kill surfaces as exit 137 / SIGKILL).
func isOOMKill(err error) bool {
	var exit *exec.ExitError
	if !errors.As(err, &exit) {
		return false
	}
	if exit.ExitCode() == 137 {
		return true
	}
	if ws, ok := exit.Sys().(syscall.WaitStatus); ok {
		return ws.Signaled() && ws.Signal() == syscall.SIGKILL
	}
	return false
}

// stderrTail returns a bounded, single-line summary of stderr for error
// messages.
func stderrTail(b []byte) string {
	const max = 512
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return strings.ReplaceAll(s, "\n", " | ")
}

// cappedBuffer keeps at most max bytes and silently truncates the rest.
type cappedBuffer struct {
	buf bytes.Buffer
	max int
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if remaining := c.max - c.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			c.buf.Write(p[:remaining])
		} else {
			c.buf.Write(p)
		}
	}
	// Report full write so the child never sees a pipe error.
	return len(p), nil
}

func (c *cappedBuffer) Bytes() []byte {
	return c.buf.Bytes()
}
