package check_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mpi-testslot/internal/check"
)

func fixed(passed bool, annotations ...string) check.Check {
	return check.Func(func(context.Context, check.Input) (check.Verdict, error) {
		return check.Verdict{Passed: passed, Annotations: annotations}, nil
	})
}

// writeOutput creates a captured-output file for checks to read.
func writeOutput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.out")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEvaluate_Aggregation(t *testing.T) {
	tests := []struct {
		name   string
		checks []check.Check
		want   bool
	}{
		{name: "no checks pass vacuously", checks: nil, want: true},
		{name: "all pass", checks: []check.Check{fixed(true), fixed(true)}, want: true},
		{name: "one failure fails the suite", checks: []check.Check{fixed(true), fixed(false), fixed(true)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := check.Evaluate(context.Background(), tt.checks, check.Input{})
			assert.Equal(t, tt.want, v.Passed)
		})
	}
}

func TestEvaluate_RunsEveryCheck(t *testing.T) {
	calls := 0
	counting := check.Func(func(context.Context, check.Input) (check.Verdict, error) {
		calls++
		return check.Verdict{Passed: false, Annotations: []string{"seen"}}, nil
	})

	v := check.Evaluate(context.Background(), []check.Check{counting, counting, counting}, check.Input{})

	assert.False(t, v.Passed)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"seen", "seen", "seen"}, v.Annotations)
}

func TestEvaluate_IsolatesBrokenChecks(t *testing.T) {
	erroring := check.Func(func(context.Context, check.Input) (check.Verdict, error) {
		return check.Verdict{Passed: true}, errors.New("bad regex")
	})
	panicking := check.Func(func(context.Context, check.Input) (check.Verdict, error) {
		panic("nil map")
	})

	v := check.Evaluate(context.Background(),
		[]check.Check{erroring, fixed(true, "after"), panicking, fixed(true)},
		check.Input{})

	assert.False(t, v.Passed)
	assert.Equal(t, []string{
		"check error: bad regex",
		"after",
		"check error: panic: nil map",
	}, v.Annotations)
}

func TestExitCode(t *testing.T) {
	ctx := context.Background()

	v, err := check.ExitCode{Want: 0}.Evaluate(ctx, check.Input{ExitCode: 0})
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.Empty(t, v.Annotations)

	v, err = check.ExitCode{Want: 0}.Evaluate(ctx, check.Input{ExitCode: 3})
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Equal(t, []string{"exit code 3"}, v.Annotations)

	v, err = check.ExitCode{Want: 0}.Evaluate(ctx, check.Input{ExitCode: 3, Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"exit code 3, want 0"}, v.Annotations)
}

func TestStrCompare(t *testing.T) {
	path := writeOutput(t, "mpiexec -np 2 opensn a.lua\nIteration 1\nConverged\n\n")
	ctx := context.Background()

	tests := []struct {
		name  string
		check check.StrCompare
		want  bool
	}{
		{name: "present key", check: check.StrCompare{Key: "Converged"}, want: true},
		{name: "missing key", check: check.StrCompare{Key: "NaN detected"}, want: false},
		{name: "absent key not found", check: check.StrCompare{Key: "NaN detected", Absent: true}, want: true},
		{name: "absent key found", check: check.StrCompare{Key: "Converged", Absent: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.check.Evaluate(ctx, check.Input{OutputPath: path})
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Passed)
		})
	}
}

func TestStrCompare_MissingOutputFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.out")

	v := check.Evaluate(context.Background(),
		[]check.Check{check.StrCompare{Key: "x", Absent: true}},
		check.Input{OutputPath: missing})

	assert.False(t, v.Passed)
	require.Len(t, v.Annotations, 1)
	assert.Contains(t, v.Annotations[0], "check error: reading output")
}

func TestFloatCompare(t *testing.T) {
	path := writeOutput(t, "header\n  Max-value1= 2.50000e+00 units\nMax-value2= 0.5\n")
	ctx := context.Background()

	tests := []struct {
		name    string
		check   check.FloatCompare
		want    bool
		wantAnn []string
	}{
		{
			name:  "within tolerance",
			check: check.FloatCompare{Key: "Max-value1=", WordNum: 1, Gold: 2.5, Tol: 1e-6},
			want:  true,
		},
		{
			name:    "outside tolerance",
			check:   check.FloatCompare{Key: "Max-value2=", WordNum: 1, Gold: 0.4, Tol: 1e-3},
			wantAnn: []string{"value mismatch"},
		},
		{
			name:    "key not present",
			check:   check.FloatCompare{Key: "Min-value=", WordNum: 1, Gold: 0},
			wantAnn: []string{`key "Min-value=" not found`},
		},
		{
			name:    "word index past end of line",
			check:   check.FloatCompare{Key: "Max-value2=", WordNum: 5, Gold: 0.5},
			wantAnn: []string{"word 5 out of range"},
		},
		{
			name:    "word is not numeric",
			check:   check.FloatCompare{Key: "Max-value1=", WordNum: 2, Gold: 0.5},
			wantAnn: []string{`not a number: "units"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.check.Evaluate(ctx, check.Input{OutputPath: path})
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Passed)
			assert.Equal(t, tt.wantAnn, v.Annotations)
		})
	}
}
