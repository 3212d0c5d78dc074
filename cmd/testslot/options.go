package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/sakif/mpi-testslot/internal/executor/docker"
)

// options is everything the runner can be told on the command line. Each
// flag falls back to a TESTSLOT_* environment variable, then to a default.
type options struct {
	Dir        string
	Manifests  []string
	Executable string
	MPICommand string
	Jobs       int
	Verbose    bool
	DBPath     string
	Launcher   string // "shell" or "docker"
	Color      string // "auto", "always" or "never"

	DockerImage    string
	DockerPoolSize int
}

type manifestList []string

func (m *manifestList) String() string     { return strings.Join(*m, ",") }
func (m *manifestList) Set(v string) error { *m = append(*m, v); return nil }

func parseOptions(args []string, getenv func(string) string, stderr io.Writer) (options, error) {
	env := func(key, def string) string {
		if v := getenv("TESTSLOT_" + key); v != "" {
			return v
		}
		return def
	}
	envInt := func(key string, def int) (int, error) {
		v := getenv("TESTSLOT_" + key)
		if v == "" {
			return def, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid TESTSLOT_%s value %q", key, v)
		}
		return n, nil
	}

	jobs, err := envInt("JOBS", runtime.NumCPU())
	if err != nil {
		return options{}, err
	}
	poolSize, err := envInt("DOCKER_POOL", docker.DefaultConfig().PoolSize)
	if err != nil {
		return options{}, err
	}
	verbose, _ := strconv.ParseBool(env("VERBOSE", "false"))

	var o options
	var manifests manifestList
	fs := flag.NewFlagSet("testslot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.Dir, "dir", env("DIR", "."), "test root; printed paths are relative to it")
	fs.Var(&manifests, "manifest", "manifest file (repeatable); default: every tests.yaml below -dir")
	fs.StringVar(&o.Executable, "exe", env("EXE", ""), "simulation executable (required)")
	fs.StringVar(&o.MPICommand, "mpi-cmd", env("MPI_CMD", "mpiexec -np"), "MPI launch prefix; the process count is appended")
	fs.IntVar(&o.Jobs, "jobs", jobs, "maximum number of tests running at once")
	fs.BoolVar(&o.Verbose, "v", verbose, "verbose check annotations and debug logging")
	fs.StringVar(&o.DBPath, "db", env("DB", ""), "SQLite file to record results in; empty disables recording")
	fs.StringVar(&o.Launcher, "launcher", env("LAUNCHER", "shell"), "where tests run: shell or docker")
	fs.StringVar(&o.Color, "color", env("COLOR", "auto"), "colour output: auto, always or never")
	fs.StringVar(&o.DockerImage, "docker-image", env("DOCKER_IMAGE", docker.DefaultConfig().Image), "image for the docker launcher")
	fs.IntVar(&o.DockerPoolSize, "docker-pool", poolSize, "pre-warmed containers for the docker launcher")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	o.Manifests = manifests

	if o.Executable == "" {
		return options{}, errors.New("-exe is required")
	}
	if o.Jobs < 1 {
		return options{}, fmt.Errorf("-jobs must be at least 1, got %d", o.Jobs)
	}
	switch o.Launcher {
	case "shell", "docker":
	default:
		return options{}, fmt.Errorf("unknown launcher %q", o.Launcher)
	}
	switch o.Color {
	case "auto", "always", "never":
	default:
		return options{}, fmt.Errorf("unknown colour mode %q", o.Color)
	}
	return o, nil
}

// useColor resolves the colour mode against the output stream.
func (o options) useColor(out *os.File) bool {
	switch o.Color {
	case "always":
		return true
	case "never":
		return false
	}
	fd := out.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
