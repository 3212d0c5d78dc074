// Package docker runs test commands inside pre-warmed containers.
//
// Each container bind-mounts the test tree at its host path, so a test's
// working directory and output file mean the same thing on both sides.
// A test is one `docker exec` of `sh -c <command>`; the container is
// removed once the test's output has been collected.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/sakif/mpi-testslot/internal/executor"
)

// apiClient is the part of the Docker API the launcher uses.
// *client.Client satisfies it.
type apiClient interface {
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config container.ExecStartOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	Close() error
}

var (
	_ apiClient         = (*client.Client)(nil)
	_ executor.Launcher = (*Launcher)(nil)
)

// Launcher implements executor.Launcher using Docker.
type Launcher struct {
	cli    apiClient
	config Config
	logger *slog.Logger
	pool   *Pool
}

// New connects to the Docker daemon, pulls the image and starts the pool.
func New(cfg Config, logger *slog.Logger) (*Launcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	logger.Info("ensuring docker image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(ctx, cfg.Image, image.PullOptions{})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	io.Copy(io.Discard, reader)
	logger.Info("docker image is ready")

	return newLauncher(cli, cfg, logger), nil
}

func newLauncher(cli apiClient, cfg Config, logger *slog.Logger) *Launcher {
	l := &Launcher{
		cli:    cli,
		config: cfg,
		logger: logger,
		pool:   NewPool(cli, cfg, logger),
	}
	l.pool.Start()
	return l
}

// Close shuts down the pool and the docker client.
func (l *Launcher) Close() error {
	l.pool.Stop()
	return l.cli.Close()
}

// Start execs the command in an idle container and returns once the exec
// is attached. Waiting for an idle container is bounded by ctx.
func (l *Launcher) Start(ctx context.Context, inv executor.Invocation) (executor.Process, error) {
	if !within(l.config.MountDir, inv.Dir) {
		return nil, fmt.Errorf("docker: working directory %s is outside %s", inv.Dir, l.config.MountDir)
	}

	containerID, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container from pool: %w", err)
	}

	p, err := l.exec(ctx, containerID, inv)
	if err != nil {
		l.pool.Release(containerID)
		return nil, err
	}
	return p, nil
}

func (l *Launcher) exec(ctx context.Context, containerID string, inv executor.Invocation) (*process, error) {
	execResp, err := l.cli.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   inv.Dir,
		Cmd:          []string{"sh", "-c", inv.Command},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := l.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach to exec: %w", err)
	}

	p := &process{
		launcher:    l,
		containerID: containerID,
		execID:      execResp.ID,
		start:       time.Now(),
		done:        make(chan struct{}),
	}
	l.logger.Debug("exec started", slog.String("container", containerID), slog.String("dir", inv.Dir))

	// The attach stream ends when the exec'd process exits.
	go func() {
		defer attachResp.Close()
		_, p.copyErr = stdcopy.StdCopy(&p.stdout, &p.stderr, attachResp.Reader)
		p.duration = time.Since(p.start)
		close(p.done)
	}()

	return p, nil
}

type process struct {
	launcher    *Launcher
	containerID string
	execID      string
	start       time.Time

	stdout, stderr bytes.Buffer
	done           chan struct{}
	copyErr        error // written before done is closed
	duration       time.Duration
}

func (p *process) Poll(context.Context) (bool, error) {
	select {
	case <-p.done:
		return true, nil
	default:
		return false, nil
	}
}

func (p *process) Wait(ctx context.Context) (*executor.ExecutionResult, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer p.launcher.pool.Release(p.containerID)

	if p.copyErr != nil {
		return nil, fmt.Errorf("docker: reading output: %w", p.copyErr)
	}

	inspect, err := p.launcher.cli.ContainerExecInspect(ctx, p.execID)
	if err != nil {
		return nil, fmt.Errorf("docker: inspecting exec: %w", err)
	}

	return &executor.ExecutionResult{
		Stdout:   p.stdout.String(),
		Stderr:   p.stderr.String(),
		ExitCode: inspect.ExitCode,
		Duration: p.duration,
	}, nil
}

func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
