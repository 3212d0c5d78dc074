// Package config loads test manifests: YAML files listing the simulation
// inputs of a directory, how many processes each runs on and how its output
// is judged.
//
//	defaults:
//	  num_procs: 1
//	tests:
//	  - file: transport/sweep.lua
//	    num_procs: 4
//	    args: ["sweep_order=2"]
//	    checks:
//	      - type: exit_code
//	      - type: float_compare
//	        key: "Max-value"
//	        word: 1
//	        gold: 2.5e-3
//	        tol: 1e-8
//	  - file: slow.lua
//	    skip: "needs 64 ranks"
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sakif/mpi-testslot/internal/apperror"
	"github.com/sakif/mpi-testslot/internal/check"
	"github.com/sakif/mpi-testslot/internal/model"
)

// Check types accepted in a manifest.
const (
	CheckExitCode     = "exit_code"
	CheckStrCompare   = "str_compare"
	CheckFloatCompare = "float_compare"
)

// Manifest is the parsed form of one manifest file.
type Manifest struct {
	Defaults Defaults    `yaml:"defaults"`
	Tests    []TestEntry `yaml:"tests"`

	// Dir is the directory the manifest was loaded from; test files are
	// resolved against it.
	Dir string `yaml:"-"`
}

// Defaults apply to every entry that leaves the field unset.
type Defaults struct {
	NumProcs int      `yaml:"num_procs"`
	Args     []string `yaml:"args"`
}

// TestEntry describes one test.
type TestEntry struct {
	File     string      `yaml:"file"`
	NumProcs int         `yaml:"num_procs"`
	Args     []string    `yaml:"args"`
	Skip     string      `yaml:"skip"`
	Checks   []CheckSpec `yaml:"checks"`
}

// CheckSpec is the union of the fields of all check types; Type selects
// which ones matter.
type CheckSpec struct {
	Type string `yaml:"type"`

	// exit_code
	Want int `yaml:"want"`

	// str_compare, float_compare
	Key string `yaml:"key"`

	// str_compare
	Absent bool `yaml:"absent"`

	// float_compare
	Word int     `yaml:"word"`
	Gold float64 `yaml:"gold"`
	Tol  float64 `yaml:"tol"`
}

// Validate reports the first problem in the manifest.
func (m *Manifest) Validate() error {
	if len(m.Tests) == 0 {
		return apperror.ValidationFailed("tests", "manifest lists no tests")
	}
	seen := make(map[string]bool, len(m.Tests))
	for i, t := range m.Tests {
		field := fmt.Sprintf("tests[%d]", i)
		if strings.TrimSpace(t.File) == "" {
			return apperror.ValidationFailed(field+".file", field+": file is required")
		}
		if filepath.IsAbs(t.File) {
			return apperror.ValidationFailed(field+".file", field+": file must be relative to the manifest")
		}
		if t.NumProcs < 1 {
			return apperror.ValidationFailed(field+".num_procs", fmt.Sprintf("%s: num_procs must be at least 1, got %d", field, t.NumProcs))
		}
		// Output files are named from the flattened path and process count,
		// so sub/a.lua and sub_a.lua on the same procs collide.
		key := (&model.Test{Filename: filepath.Clean(t.File), NumProcs: t.NumProcs}).OutFilenamePrefix()
		if seen[key] {
			return apperror.ValidationFailed(field, fmt.Sprintf("%s: test %s on %d procs shares output file %s.out with an earlier entry", field, t.File, t.NumProcs, key))
		}
		seen[key] = true
		for j, c := range t.Checks {
			if err := c.validate(); err != nil {
				return apperror.ValidationFailed(fmt.Sprintf("%s.checks[%d]", field, j),
					fmt.Sprintf("%s.checks[%d]: %s", field, j, err.Error()))
			}
		}
	}
	return nil
}

func (c CheckSpec) validate() error {
	switch c.Type {
	case CheckExitCode:
		return nil
	case CheckStrCompare:
		if c.Key == "" {
			return fmt.Errorf("%s needs a key", c.Type)
		}
		return nil
	case CheckFloatCompare:
		if c.Key == "" {
			return fmt.Errorf("%s needs a key", c.Type)
		}
		if c.Word < 0 {
			return fmt.Errorf("%s word must not be negative", c.Type)
		}
		if c.Tol < 0 {
			return fmt.Errorf("%s tol must not be negative", c.Type)
		}
		return nil
	case "":
		return fmt.Errorf("check type is required")
	default:
		return fmt.Errorf("unknown check type %q", c.Type)
	}
}

// Build turns a validated check spec into the check it names.
func (c CheckSpec) Build() check.Check {
	switch c.Type {
	case CheckStrCompare:
		return check.StrCompare{Key: c.Key, Absent: c.Absent}
	case CheckFloatCompare:
		return check.FloatCompare{Key: c.Key, WordNum: c.Word, Gold: c.Gold, Tol: c.Tol}
	default:
		return check.ExitCode{Want: c.Want}
	}
}

// BuildTests builds one model.Test per entry, each running in the
// manifest's directory. Call it on a manifest with defaults applied.
func (m *Manifest) BuildTests() []*model.Test {
	tests := make([]*model.Test, 0, len(m.Tests))
	for _, e := range m.Tests {
		checks := make([]check.Check, 0, len(e.Checks))
		for _, c := range e.Checks {
			checks = append(checks, c.Build())
		}
		tests = append(tests, &model.Test{
			Filename: filepath.Clean(e.File),
			FileDir:  m.Dir,
			NumProcs: e.NumProcs,
			Args:     append([]string(nil), e.Args...),
			Skip:     e.Skip,
			Checks:   checks,
		})
	}
	return tests
}
