// Package slot supervises the run of a single test.
//
// A Slot starts the test's process when it is created and is then polled by
// a scheduler. The first Probe that sees the process gone writes the
// captured output file, evaluates the test's checks and prints the result
// line. Every later Probe is a no-op.
package slot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/xid"

	"github.com/sakif/mpi-testslot/internal/apperror"
	"github.com/sakif/mpi-testslot/internal/executor"
	"github.com/sakif/mpi-testslot/internal/model"
	"github.com/sakif/mpi-testslot/internal/report"
)

// Config is the part of the runner's configuration every slot needs.
type Config struct {
	Executable string // simulation binary
	MPICommand string // launch prefix the process count is appended to, e.g. "mpiexec -np"
	Verbose    bool   // passed on to checks
	Directory  string // test root; printed paths are relative to it
}

// Slot owns one test run.
type Slot struct {
	id      string
	cfg     Config
	printer *report.Printer
	logger  *slog.Logger

	mu      sync.Mutex
	test    *model.Test
	state   State
	proc    executor.Process // nil until started; stays nil for skipped tests
	command string
	passed  bool
	result  *model.Result
}

// New marks test as submitted and, unless it is skipped, starts its process.
//
// Any output file left by an earlier run of the test is removed first. If
// it cannot be removed, or the process cannot be started, the test is
// recorded as failed with a "launch failed" annotation, its line is printed
// and an error wrapping apperror.ErrLaunch is returned.
func New(ctx context.Context, test *model.Test, cfg Config, launcher executor.Launcher,
	printer *report.Printer, logger *slog.Logger) (*Slot, error) {
	s := &Slot{
		id:      xid.New().String(),
		cfg:     cfg,
		printer: printer,
		test:    test,
		state:   NotStarted,
	}
	s.logger = logger.With(slog.String("run", s.id), slog.String("test", s.displayPath()))

	test.Submitted = true
	if test.Skipped() {
		return s, nil
	}

	s.command = executor.BuildCommand(cfg.MPICommand, test.NumProcs, cfg.Executable, test.Filename, test.Args)
	// Output left by an earlier run must never be judged as this run's.
	err := os.Remove(test.OutputPath())
	var proc executor.Process
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		proc, err = launcher.Start(ctx, executor.Invocation{Command: s.command, Dir: test.FileDir})
	} else {
		err = fmt.Errorf("removing previous output: %w", err)
	}
	if err != nil {
		launchErr := apperror.LaunchFailed(s.displayPath(), err)
		s.logger.Error("failed to launch test", slog.String("command", s.command), slog.String("error", err.Error()))
		s.mu.Lock()
		s.complete(ctx, Completed, outcome{launchErr: launchErr})
		s.mu.Unlock()
		return nil, launchErr
	}

	s.proc = proc
	s.state = Running
	s.logger.Debug("test launched", slog.String("command", s.command))
	return s, nil
}

// Probe reports whether the test is still running. It never waits for a
// running process.
func (s *Slot) Probe(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.test.Ran {
		return false
	}

	if s.test.Skipped() {
		s.complete(ctx, SkippedCompleted, outcome{})
		return false
	}

	exited, err := s.proc.Poll(ctx)
	if err != nil {
		s.logger.Error("failed to poll test process", slog.String("error", err.Error()))
		s.complete(ctx, Completed, outcome{captureErr: err})
		return false
	}
	if !exited {
		return true
	}

	res, err := s.proc.Wait(ctx)
	if err != nil {
		s.logger.Error("failed to collect test output", slog.String("error", err.Error()))
		s.complete(ctx, Completed, outcome{captureErr: err})
		return false
	}
	if err := writeOutput(s.test.OutputPath(), s.command, res); err != nil {
		s.logger.Error("failed to write output file", slog.String("error", err.Error()))
		s.complete(ctx, Completed, outcome{exec: res, captureErr: err})
		return false
	}
	s.complete(ctx, Completed, outcome{exec: res})
	return false
}

// complete performs the checks once and moves the slot to a terminal state.
// The caller holds s.mu.
func (s *Slot) complete(ctx context.Context, final State, o outcome) {
	if s.test.Ran {
		return
	}
	s.performChecks(ctx, o)
	s.test.Ran = true
	s.state = final
}

// ID identifies this run in logs and stored results.
func (s *Slot) ID() string { return s.id }

// Test returns the test this slot runs.
func (s *Slot) Test() *model.Test { return s.test }

// Command returns the rendered launch command; empty for skipped tests.
func (s *Slot) Command() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.command
}

// State returns the current lifecycle state.
func (s *Slot) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Passed reports the verdict; false until the slot is completed.
func (s *Slot) Passed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passed
}

// Result returns the record of the finished run. ok is false while the test
// has not been evaluated yet.
func (s *Slot) Result() (res model.Result, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return model.Result{}, false
	}
	res = *s.result
	res.Annotations = append([]string(nil), s.result.Annotations...)
	return res, true
}

func (s *Slot) displayPath() string {
	path := s.test.Path()
	if s.cfg.Directory == "" {
		return path
	}
	rel, err := filepath.Rel(s.cfg.Directory, path)
	if err != nil {
		return path
	}
	return rel
}
