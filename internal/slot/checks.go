package slot

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sakif/mpi-testslot/internal/check"
	"github.com/sakif/mpi-testslot/internal/executor"
	"github.com/sakif/mpi-testslot/internal/model"
	"github.com/sakif/mpi-testslot/internal/report"
)

// Annotations the slot itself records.
const (
	AnnotationSkipped       = "skipped"
	AnnotationFileMissing   = "lua file missing"
	AnnotationLaunchFailed  = "launch failed"
	AnnotationCaptureFailed = "output capture failed"
)

// outcome is how the process ended, as far as the slot could tell.
type outcome struct {
	exec       *executor.ExecutionResult // nil when nothing was collected
	launchErr  error
	captureErr error
}

// performChecks applies the test's check suite, records the verdict and
// prints the result line. It runs exactly once per test, after the process
// has exited (or was never started). The caller holds s.mu.
func (s *Slot) performChecks(ctx context.Context, o outcome) {
	test := s.test
	outputPath := test.OutputPath()
	passed := true
	exitCode := -1
	if o.exec != nil {
		exitCode = o.exec.ExitCode
	}

	switch {
	case test.Skipped():
		test.Annotations = append(test.Annotations, AnnotationSkipped)
	case o.launchErr != nil:
		test.Annotations = append(test.Annotations, AnnotationLaunchFailed)
		passed = false
	default:
		if o.captureErr != nil {
			test.Annotations = append(test.Annotations, AnnotationCaptureFailed)
			passed = false
		}
		v := check.Evaluate(ctx, test.Checks, check.Input{
			OutputPath: outputPath,
			ExitCode:   exitCode,
			Verbose:    s.cfg.Verbose,
		})
		passed = passed && v.Passed
		test.Annotations = append(test.Annotations, v.Annotations...)
	}

	if info, err := os.Stat(test.Path()); err != nil || !info.Mode().IsRegular() {
		test.Annotations = append(test.Annotations, AnnotationFileMissing)
	}

	elapsed := 0.0
	if !test.Skipped() {
		elapsed = report.ElapsedFromFile(outputPath)
	}

	s.passed = passed
	s.result = &model.Result{
		ID:          s.id,
		TestPath:    s.displayPath(),
		NumProcs:    test.NumProcs,
		Passed:      passed,
		Skipped:     test.Skipped(),
		SkipReason:  test.Skip,
		Annotations: append([]string(nil), test.Annotations...),
		ExitCode:    exitCode,
		Command:     s.command,
		Elapsed:     elapsed,
		CreatedAt:   time.Now(),
	}
	if o.exec != nil {
		s.result.Duration = o.exec.Duration
	}

	line := report.Line{
		Path:        s.result.TestPath,
		NumProcs:    test.NumProcs,
		Annotations: s.result.Annotations,
		Passed:      passed,
		Elapsed:     elapsed,
	}
	if err := s.printer.Print(line, test.Skip); err != nil {
		s.logger.Error("failed to print result line", slog.String("error", err.Error()))
	}

	s.logger.Info("test finished",
		slog.Bool("passed", passed),
		slog.Int("exitCode", exitCode),
		slog.Float64("elapsed", elapsed),
		slog.Any("annotations", s.result.Annotations),
	)
}

// writeOutput stores the command line, stdout and stderr of a run, each
// followed by a newline, replacing any earlier output.
func writeOutput(path, command string, res *executor.ExecutionResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	b.Grow(len(command) + len(res.Stdout) + len(res.Stderr) + 3)
	b.WriteString(command)
	b.WriteByte('\n')
	b.WriteString(res.Stdout)
	b.WriteByte('\n')
	b.WriteString(res.Stderr)
	b.WriteByte('\n')
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
