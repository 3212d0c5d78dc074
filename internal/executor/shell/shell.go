// Package shell runs test commands as local child processes through /bin/sh.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/sakif/mpi-testslot/internal/executor"
)

var _ executor.Launcher = (*Launcher)(nil)

// Launcher implements executor.Launcher with os/exec.
type Launcher struct {
	shell  string
	logger *slog.Logger
}

// New returns a Launcher that interprets commands with sh.
func New(logger *slog.Logger) *Launcher {
	return &Launcher{shell: "/bin/sh", logger: logger}
}

// Start spawns `sh -c <command>` in inv.Dir and returns at once.
//
// The working directory is checked up front so a bad directory is reported
// as a launch error rather than as a shell that exits non-zero.
func (l *Launcher) Start(_ context.Context, inv executor.Invocation) (executor.Process, error) {
	if inv.Dir != "" {
		info, err := os.Stat(inv.Dir)
		if err != nil {
			return nil, fmt.Errorf("shell: working directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("shell: working directory %s is not a directory", inv.Dir)
		}
	}

	// Not CommandContext: a launched test always runs to completion.
	cmd := exec.Command(l.shell, "-c", inv.Command)
	cmd.Dir = inv.Dir

	p := &process{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	cmd.Stdout = &p.stdout
	cmd.Stderr = &p.stderr

	p.start = time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("shell: starting %q: %w", inv.Command, err)
	}
	l.logger.Debug("process started",
		slog.Int("pid", cmd.Process.Pid),
		slog.String("dir", inv.Dir),
	)

	// Reaper: the only goroutine per process. It closes done once the
	// process has exited and both pipes are drained into the buffers.
	go func() {
		p.waitErr = cmd.Wait()
		p.duration = time.Since(p.start)
		close(p.done)
	}()

	return p, nil
}

type process struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer
	start  time.Time

	done     chan struct{}
	waitErr  error // written before done is closed
	duration time.Duration
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

	exitCode := 0
	if p.waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(p.waitErr, &exitErr) {
			return nil, fmt.Errorf("shell: waiting for process: %w", p.waitErr)
		}
		exitCode = exitErr.ExitCode()
	}

	return &executor.ExecutionResult{
		Stdout:   p.stdout.String(),
		Stderr:   p.stderr.String(),
		ExitCode: exitCode,
		Duration: p.duration,
	}, nil
}
