// Package check defines how a finished test run is judged.
//
// A Check looks at the captured output file and the exit code of a run and
// returns a Verdict. Checks know nothing about processes or slots; a slot
// evaluates its test's checks once, after the process has exited.
package check

import (
	"context"
	"fmt"

	"github.com/sakif/mpi-testslot/internal/apperror"
)

// Input is what every check gets to look at.
type Input struct {
	OutputPath string // captured output of the run; may not exist
	ExitCode   int
	Verbose    bool
}

// Verdict is the outcome of one check.
type Verdict struct {
	Passed      bool
	Annotations []string
}

// Check is implemented by every check kind.
type Check interface {
	Evaluate(ctx context.Context, in Input) (Verdict, error)
}

// Func adapts a plain function to the Check interface.
type Func func(ctx context.Context, in Input) (Verdict, error)

func (f Func) Evaluate(ctx context.Context, in Input) (Verdict, error) {
	return f(ctx, in)
}

// Evaluate runs every check in order and ANDs their verdicts.
//
// All checks run even after one has failed, so the annotations of the whole
// suite are collected. A check that errors or panics counts as failed and
// contributes a "check error: ..." annotation. An empty suite passes.
func Evaluate(ctx context.Context, checks []Check, in Input) Verdict {
	suite := Verdict{Passed: true}
	for _, c := range checks {
		v, err := evaluateOne(ctx, c, in)
		if err != nil {
			v = Verdict{Annotations: append(v.Annotations, apperror.CheckFailed(err).Error())}
		}
		suite.Passed = suite.Passed && v.Passed
		suite.Annotations = append(suite.Annotations, v.Annotations...)
	}
	return suite
}

func evaluateOne(ctx context.Context, c Check, in Input) (v Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = Verdict{}, fmt.Errorf("panic: %v", r)
		}
	}()
	return c.Evaluate(ctx, in)
}
