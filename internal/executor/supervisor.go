package executor

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

// Limits are the per-execution ceilings the supervisor enforces.
type Limits struct {
	WallClock   time.Duration
	CPUSeconds  int64
	MemoryBytes int64
}

// Supervisor runs one subprocess under the configured ceilings. It never
// waits on the child unconditionally: completion always races the wall-clock
// deadline, and a forced kill takes the whole process group with it since
// executed code may fork.
type Supervisor struct {
	limits Limits
}

func NewSupervisor(limits Limits) *Supervisor {
	return &Supervisor{limits: limits}
}

// Run starts cmd, applies resource limits to the child, and waits for
// completion or the deadline. The child is reaped on every exit path.
func (s *Supervisor) Run(ctx context.Context, cmd *exec.Cmd, stdin string) (*Result, error) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	// Own process group so a kill reaches children as well.
	cmd.SysProcAttr.Setpgid = true

	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting process: %w", err)
	}
	pid := cmd.Process.Pid

	// Best effort: a child that raced to exit before limits land is about to
	// be reaped anyway.
	applyRlimits(pid, s.limits)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	timedOut := false

	select {
	case waitErr = <-done:
	case <-time.After(s.limits.WallClock):
		timedOut = true
		killTree(pid)
		waitErr = <-done
	case <-ctx.Done():
		killTree(pid)
		<-done
		return nil, ctx.Err()
	}

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Status:   StatusOK,
		Duration: time.Since(start),
	}

	switch {
	case timedOut:
		result.Status = StatusTimeout
		result.ExitCode = KilledExitCode
	case waitErr == nil:
		result.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("waiting for process: %w", waitErr)
		}
		result.ExitCode = exitErr.ExitCode()
		if sig, ok := exitSignal(exitErr); ok && isLimitSignal(sig) {
			result.Status = StatusResourceLimit
			result.ExitCode = KilledExitCode
		}
	}

	return result, nil
}

// killTree kills the process group rooted at pid. The group exists because
// we started the child with Setpgid.
func killTree(pid int) {
	syscall.Kill(-pid, syscall.SIGKILL)
}

func exitSignal(exitErr *exec.ExitError) (syscall.Signal, bool) {
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return 0, false
	}
	return status.Signal(), true
}

// isLimitSignal reports whether the termination signal indicates a breached
// resource ceiling: SIGXCPU for CPU time, SIGKILL from the kernel once the
// hard CPU limit or the memory ceiling bites.
func isLimitSignal(sig syscall.Signal) bool {
	return sig == syscall.SIGXCPU || sig == syscall.SIGKILL
}
