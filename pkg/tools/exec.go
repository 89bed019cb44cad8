package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// ExecResult carries the raw outcome of one command execution.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// CommandRunner executes a shell command in a working directory with a hard
// timeout. Implementations must not leave the process (or any of its
// children) running after a timeout.
type CommandRunner interface {
	Run(ctx context.Context, dir, command string, timeout time.Duration) (*ExecResult, error)
}

// HostRunner runs commands directly on the host via /bin/sh. There is no
// sandboxing: commands run with the ambient privileges of this process.
type HostRunner struct{}

// Verify interface compliance.
var _ CommandRunner = (*HostRunner)(nil)

// Run executes command under /bin/sh -c in dir. The command runs in its own
// process group so a timeout kills the whole tree, not just the shell.
func (HostRunner) Run(ctx context.Context, dir, command string, timeout time.Duration) (*ExecResult, error) {
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	kill := func() {
		// Negative pid targets the process group.
		syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
	}

	select {
	case <-ctx.Done():
		kill()
		return nil, ctx.Err()
	case <-timer.C:
		kill()
		return &ExecResult{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: -1,
			TimedOut: true,
		}, nil
	case err := <-done:
		res := &ExecResult{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else if err != nil {
			return nil, fmt.Errorf("waiting for command: %w", err)
		}
		return res, nil
	}
}
