// Command testslot runs simulation regression tests under MPI.
//
// Tests are read from YAML manifests, run with a bounded number in flight,
// and reported one line each on stdout. Logs go to stderr. With -db every
// result is also stored in SQLite, where cmd/server can serve it.
//
//	testslot -exe /opt/opensn/bin/opensn -dir test -jobs 8 -db test/out/results.db
//
// The exit status is 0 when every test that ran passed, 1 otherwise and 2
// for usage errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sakif/mpi-testslot/internal/config"
	"github.com/sakif/mpi-testslot/internal/executor"
	"github.com/sakif/mpi-testslot/internal/executor/docker"
	"github.com/sakif/mpi-testslot/internal/executor/shell"
	"github.com/sakif/mpi-testslot/internal/report"
	sqliteRepo "github.com/sakif/mpi-testslot/internal/repository/sqlite"
	"github.com/sakif/mpi-testslot/internal/runner"
	"github.com/sakif/mpi-testslot/internal/service"
	"github.com/sakif/mpi-testslot/internal/slot"
)

func main() {
	opts, err := parseOptions(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "testslot: %v\n", err)
		}
		os.Exit(2)
	}
	os.Exit(run(opts))
}

func run(opts options) int {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, err := filepath.Abs(opts.Dir)
	if err != nil {
		logger.Error("invalid test directory", slog.String("dir", opts.Dir), slog.String("error", err.Error()))
		return 2
	}

	// === LOAD TESTS ===
	loader := config.NewLoader(root)
	var paths []string
	for _, m := range opts.Manifests {
		// Manifests named on the command line are relative to the working directory.
		abs, err := filepath.Abs(m)
		if err != nil {
			logger.Error("invalid manifest path", slog.String("manifest", m), slog.String("error", err.Error()))
			return 2
		}
		paths = append(paths, abs)
	}
	if len(paths) == 0 {
		if paths, err = loader.FindManifests("."); err != nil {
			logger.Error("failed to find manifests", slog.String("error", err.Error()))
			return 2
		}
	}
	tests, err := loader.LoadTests(paths)
	if err != nil {
		logger.Error("failed to load tests", slog.String("error", err.Error()))
		return 2
	}
	if len(tests) == 0 {
		logger.Warn("no tests found", slog.String("dir", root))
		return 0
	}
	logger.Info("tests loaded", slog.Int("tests", len(tests)), slog.Int("manifests", len(paths)))

	// === LAUNCHER ===
	var launcher executor.Launcher
	switch opts.Launcher {
	case "docker":
		cfg := docker.DefaultConfig()
		cfg.Image = opts.DockerImage
		cfg.MountDir = root
		cfg.PoolSize = opts.DockerPoolSize
		dl, err := docker.New(cfg, logger)
		if err != nil {
			logger.Error("docker launcher unavailable", slog.String("error", err.Error()))
			return 2
		}
		defer dl.Close()
		launcher = dl
	default:
		launcher = shell.New(logger)
	}

	// === RESULT HISTORY (optional) ===
	var recorder runner.Recorder
	if opts.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.DBPath), 0o755); err != nil {
			logger.Error("failed to create database directory", slog.String("error", err.Error()))
			return 2
		}
		db, err := sqliteRepo.New(opts.DBPath)
		if err != nil {
			logger.Error("failed to open results database", slog.String("error", err.Error()))
			return 2
		}
		defer db.Close()
		recorder = service.NewResultService(db, logger)
	}

	// === RUN ===
	printer := report.NewPrinter(os.Stdout, opts.useColor(os.Stdout))
	r := runner.New(runner.Config{
		Slot: slot.Config{
			Executable: opts.Executable,
			MPICommand: opts.MPICommand,
			Verbose:    opts.Verbose,
			Directory:  root,
		},
		Jobs: opts.Jobs,
	}, launcher, printer, recorder, logger)

	sum, err := r.Run(ctx, tests)
	fmt.Fprintf(os.Stdout, "\n%d tests: %d passed, %d failed, %d skipped, %d not launched\n",
		sum.Total, sum.Passed, sum.Failed, sum.Skipped, sum.LaunchErrors)
	if err != nil {
		logger.Error("run aborted", slog.String("error", err.Error()))
		return 1
	}
	if !sum.OK() {
		return 1
	}
	return 0
}
