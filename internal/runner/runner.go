// Package runner drives a batch of tests through slots: it keeps up to Jobs
// slots running, probes them on a fixed interval, and records every result
// once its line has been printed.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/sakif/mpi-testslot/internal/apperror"
	"github.com/sakif/mpi-testslot/internal/executor"
	"github.com/sakif/mpi-testslot/internal/model"
	"github.com/sakif/mpi-testslot/internal/report"
	"github.com/sakif/mpi-testslot/internal/slot"
)

// DefaultPollInterval is how often running slots are probed.
const DefaultPollInterval = 100 * time.Millisecond

// Recorder stores finished results. service.ResultService satisfies it.
type Recorder interface {
	Record(ctx context.Context, result *model.Result) error
}

// Config controls a run.
type Config struct {
	Slot         slot.Config
	Jobs         int           // concurrently running slots; < 1 means 1
	PollInterval time.Duration // 0 means DefaultPollInterval
}

// Summary counts the outcomes of a run.
type Summary struct {
	Total        int
	Passed       int
	Failed       int
	Skipped      int
	LaunchErrors int
}

func (s *Summary) add(res model.Result) {
	s.Total++
	switch {
	case res.Skipped:
		s.Skipped++
	case res.Passed:
		s.Passed++
	default:
		s.Failed++
	}
}

// OK reports whether every test that ran passed.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.LaunchErrors == 0
}

// Runner schedules slots.
type Runner struct {
	cfg      Config
	launcher executor.Launcher
	printer  *report.Printer
	recorder Recorder // may be nil
	logger   *slog.Logger
}

// New creates a Runner. recorder may be nil when results are not kept.
func New(cfg Config, launcher executor.Launcher, printer *report.Printer, recorder Recorder, logger *slog.Logger) *Runner {
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Runner{
		cfg:      cfg,
		launcher: launcher,
		printer:  printer,
		recorder: recorder,
		logger:   logger,
	}
}

// Run executes tests in order with at most Jobs running at once and returns
// when all of them are done. If ctx is cancelled no further tests are
// started; processes already running are abandoned, not killed, and
// ctx.Err() is returned with the summary so far.
func (r *Runner) Run(ctx context.Context, tests []*model.Test) (Summary, error) {
	var (
		sum     Summary
		pending = tests
		active  = make([]*slot.Slot, 0, r.cfg.Jobs)
	)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		for len(active) < r.cfg.Jobs && len(pending) > 0 {
			if ctx.Err() != nil {
				break
			}
			test := pending[0]
			pending = pending[1:]

			s, err := slot.New(ctx, test, r.cfg.Slot, r.launcher, r.printer, r.logger)
			if err != nil {
				sum.Total++
				sum.LaunchErrors++
				if !errors.Is(err, apperror.ErrLaunch) {
					r.logger.Error("unexpected slot error", slog.String("error", err.Error()))
				}
				r.record(ctx, r.launchFailure(test, err))
				continue
			}
			active = append(active, s)
		}

		// Probe everything, keep what is still running. A finished process is
		// evaluated even after ctx is cancelled.
		still := active[:0]
		for _, s := range active {
			if s.Probe(context.WithoutCancel(ctx)) {
				still = append(still, s)
				continue
			}
			res, _ := s.Result()
			sum.add(res)
			r.record(ctx, &res)
		}
		active = still

		if len(active) == 0 && (len(pending) == 0 || ctx.Err() != nil) {
			if err := ctx.Err(); err != nil {
				r.logger.Warn("run interrupted",
					slog.Int("notStarted", len(pending)),
					slog.Int("completed", sum.Total))
				return sum, err
			}
			return sum, nil
		}

		select {
		case <-ctx.Done():
			if len(active) > 0 {
				r.logger.Warn("abandoning running tests", slog.Int("running", len(active)))
			}
			return sum, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) record(ctx context.Context, res *model.Result) {
	if r.recorder == nil {
		return
	}
	// Results are kept even when the run is being interrupted.
	if err := r.recorder.Record(context.WithoutCancel(ctx), res); err != nil {
		r.logger.Error("failed to record result",
			slog.String("test", res.TestPath),
			slog.String("error", err.Error()))
	}
}

// launchFailure is the record for a test whose process never started. The
// slot has already annotated the test and printed its line.
func (r *Runner) launchFailure(test *model.Test, err error) *model.Result {
	path := test.Path()
	if dir := r.cfg.Slot.Directory; dir != "" {
		if rel, relErr := filepath.Rel(dir, path); relErr == nil {
			path = rel
		}
	}
	r.logger.Debug("recording launch failure", slog.String("test", path), slog.String("error", err.Error()))
	return &model.Result{
		TestPath:    path,
		NumProcs:    test.NumProcs,
		Annotations: append([]string(nil), test.Annotations...),
		ExitCode:    -1,
		CreatedAt:   time.Now(),
	}
}
