// Package dockerexec provides a CommandRunner that executes shell commands
// inside a long-lived Docker container instead of the host shell. The rest
// of the tool server (directory state, file tools) is unchanged; only
// execute_command is redirected into the container.
package dockerexec

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/nstogner/tandem/pkg/tools"
)

const containerName = "tandem-exec"

// timeoutExitCode is what coreutils timeout(1) returns when it kills the
// command.
const timeoutExitCode = 124

// Runner implements tools.CommandRunner using the Docker exec API.
type Runner struct {
	cli   *client.Client
	image string
}

// Verify interface compliance.
var _ tools.CommandRunner = (*Runner)(nil)

// New creates a Docker-backed runner using the given image. The image must
// be available locally and must provide /bin/sh and timeout(1).
func New(image string) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &Runner{cli: cli, image: image}, nil
}

// Close removes the execution container and releases the client.
func (r *Runner) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.cli.ContainerRemove(ctx, containerName, types.ContainerRemoveOptions{Force: true})
	return r.cli.Close()
}

// Run executes command in the container. The in-container timeout(1) wrapper
// enforces the bound so no process outlives the call, even though the exec
// API has no kill primitive of its own.
func (r *Runner) Run(ctx context.Context, dir, command string, timeout time.Duration) (*tools.ExecResult, error) {
	id, err := r.ensureRunning(ctx)
	if err != nil {
		return nil, err
	}

	wrapped := fmt.Sprintf("timeout %d /bin/sh -c %s", int(timeout.Seconds()), shellQuote(command))

	execResp, err := r.cli.ContainerExecCreate(ctx, id, types.ExecConfig{
		Cmd:          []string{"/bin/sh", "-c", wrapped},
		WorkingDir:   dir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating exec: %w", err)
	}

	// Backstop deadline in case timeout(1) is missing from the image.
	attachCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	attach, err := r.cli.ContainerExecAttach(attachCtx, execResp.ID, types.ExecStartCheck{})
	if err != nil {
		return nil, fmt.Errorf("attaching exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return nil, fmt.Errorf("reading exec output: %w", err)
	}

	inspect, err := r.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("inspecting exec: %w", err)
	}

	res := &tools.ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}
	if inspect.ExitCode == timeoutExitCode {
		res.TimedOut = true
		res.ExitCode = -1
	}
	return res, nil
}

// ensureRunning inspects the execution container, creating or starting it as
// needed, and returns its ID.
func (r *Runner) ensureRunning(ctx context.Context) (string, error) {
	c, err := r.cli.ContainerInspect(ctx, containerName)
	if err != nil {
		if client.IsErrNotFound(err) {
			return r.createAndStart(ctx)
		}
		return "", fmt.Errorf("inspecting container: %w", err)
	}
	if c.State.Running {
		return c.ID, nil
	}
	if err := r.cli.ContainerStart(ctx, c.ID, types.ContainerStartOptions{}); err != nil {
		return "", fmt.Errorf("starting container: %w", err)
	}
	return c.ID, nil
}

func (r *Runner) createAndStart(ctx context.Context) (string, error) {
	if _, _, err := r.cli.ImageInspectWithRaw(ctx, r.image); err != nil {
		return "", fmt.Errorf("image %q not found locally: %w", r.image, err)
	}

	slog.Info("Creating execution container", "image", r.image)

	resp, err := r.cli.ContainerCreate(ctx, &container.Config{
		Image: r.image,
		// Keep the container alive so consecutive tool calls share state.
		Cmd: []string{"sleep", "infinity"},
	}, &container.HostConfig{}, nil, nil, containerName)
	if err != nil {
		return "", fmt.Errorf("creating container: %w", err)
	}
	if err := r.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return "", fmt.Errorf("starting container: %w", err)
	}
	return resp.ID, nil
}

// shellQuote single-quotes s for embedding in a sh -c string.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
