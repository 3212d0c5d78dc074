// Package model defines the data structures shared by the slot, the report
// renderer, the repository and the HTTP layer.
package model

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sakif/mpi-testslot/internal/check"
)

// Test is one simulation input file together with how to run and judge it.
//
// The scheduler creates and owns a Test. A slot borrows it for the length of
// one run and writes only Submitted, Ran and Annotations.
type Test struct {
	Filename string   `json:"filename"`
	FileDir  string   `json:"fileDir"` // working directory of the run
	NumProcs int      `json:"numProcs"`
	Args     []string `json:"args"`
	// Skip is empty for runnable tests and carries the reason otherwise.
	Skip string `json:"skip,omitempty"`

	Checks []check.Check `json:"-"`

	Submitted   bool     `json:"submitted"`
	Ran         bool     `json:"ran"`
	Annotations []string `json:"annotations"`
}

// Path is the test file resolved against its working directory.
func (t *Test) Path() string {
	return filepath.Join(t.FileDir, t.Filename)
}

// OutFilenamePrefix is the file name (without directory) used for the
// captured output: the test file name with its extension dropped and any
// path separators flattened, suffixed by the process count.
//
//	"transport/sweep.lua" with 4 procs -> "transport_sweep_4"
func (t *Test) OutFilenamePrefix() string {
	name := filepath.ToSlash(t.Filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.TrimPrefix(name, "./")
	name = strings.ReplaceAll(name, "/", "_")
	return name + "_" + strconv.Itoa(t.NumProcs)
}

// OutputPath is where a run of this test stores its captured output.
func (t *Test) OutputPath() string {
	return filepath.Join(t.FileDir, "out", t.OutFilenamePrefix()+".out")
}

// Skipped reports whether the test must not be run.
func (t *Test) Skipped() bool {
	return t.Skip != ""
}
