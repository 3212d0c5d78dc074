package executor

import (
	"context"
	"time"
)

// Invocation describes one shell command to run for a test.
type Invocation struct {
	Command string `json:"command"` // full command line, interpreted by a shell
	Dir     string `json:"dir"`     // working directory
}

// ExecutionResult represents the output and status of a finished process.
type ExecutionResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}

// Process is a started command.
//
// Poll never waits for the command: it reports whether it has exited.
// Wait may only be called once Poll has reported exit; it drains the captured
// streams and collects the exit code.
type Process interface {
	Poll(ctx context.Context) (bool, error)
	Wait(ctx context.Context) (*ExecutionResult, error)
}

// Launcher starts processes without waiting for them.
type Launcher interface {
	Start(ctx context.Context, inv Invocation) (Process, error)
}
