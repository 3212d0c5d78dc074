package model

import "time"

// Result is the immutable record a slot hands back once its test has been
// evaluated. The repository persists it and the HTTP API serves it.
type Result struct {
	ID          string        `json:"id"`
	TestPath    string        `json:"testPath"` // relative to the run's base directory
	NumProcs    int           `json:"numProcs"`
	Passed      bool          `json:"passed"`
	Skipped     bool          `json:"skipped"`
	SkipReason  string        `json:"skipReason,omitempty"`
	Annotations []string      `json:"annotations"`
	ExitCode    int           `json:"exitCode"`
	Command     string        `json:"command,omitempty"`
	Elapsed     float64       `json:"elapsedSeconds"` // as reported by the simulation itself
	Duration    time.Duration `json:"duration"`       // wall clock seen by the launcher
	CreatedAt   time.Time     `json:"createdAt"`
}
