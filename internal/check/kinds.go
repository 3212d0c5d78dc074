package check

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// ExitCode passes when the run exited with Want.
type ExitCode struct {
	Want int
}

func (c ExitCode) Evaluate(_ context.Context, in Input) (Verdict, error) {
	if in.ExitCode == c.Want {
		return Verdict{Passed: true}, nil
	}
	ann := fmt.Sprintf("exit code %d", in.ExitCode)
	if in.Verbose {
		ann = fmt.Sprintf("exit code %d, want %d", in.ExitCode, c.Want)
	}
	return Verdict{Annotations: []string{ann}}, nil
}

// StrCompare passes when some output line contains Key. With Absent set it
// passes only when no line does.
type StrCompare struct {
	Key    string
	Absent bool
}

func (c StrCompare) Evaluate(ctx context.Context, in Input) (Verdict, error) {
	found := false
	err := scanLines(ctx, in.OutputPath, func(line string) bool {
		found = strings.Contains(line, c.Key)
		return !found
	})
	if err != nil {
		return Verdict{}, err
	}
	if found != c.Absent {
		return Verdict{Passed: true}, nil
	}
	if !in.Verbose {
		return Verdict{}, nil
	}
	if c.Absent {
		return Verdict{Annotations: []string{fmt.Sprintf("found %q", c.Key)}}, nil
	}
	return Verdict{Annotations: []string{fmt.Sprintf("missing %q", c.Key)}}, nil
}

// FloatCompare finds the first output line containing Key, takes the
// whitespace separated word at index WordNum and compares it with Gold.
// The value passes when |value-Gold| <= Tol.
type FloatCompare struct {
	Key     string
	WordNum int
	Gold    float64
	Tol     float64
}

func (c FloatCompare) Evaluate(ctx context.Context, in Input) (Verdict, error) {
	var (
		line  string
		found bool
	)
	err := scanLines(ctx, in.OutputPath, func(l string) bool {
		if strings.Contains(l, c.Key) {
			line, found = l, true
		}
		return !found
	})
	if err != nil {
		return Verdict{}, err
	}
	if !found {
		return Verdict{Annotations: []string{fmt.Sprintf("key %q not found", c.Key)}}, nil
	}

	words := strings.Fields(line)
	if c.WordNum < 0 || c.WordNum >= len(words) {
		return Verdict{Annotations: []string{fmt.Sprintf("word %d out of range", c.WordNum)}}, nil
	}
	value, err := strconv.ParseFloat(strings.TrimRight(words[c.WordNum], ",;"), 64)
	if err != nil {
		return Verdict{Annotations: []string{fmt.Sprintf("not a number: %q", words[c.WordNum])}}, nil
	}

	if math.Abs(value-c.Gold) <= c.Tol {
		return Verdict{Passed: true}, nil
	}
	ann := "value mismatch"
	if in.Verbose {
		ann = fmt.Sprintf("%s: %g, gold %g, tol %g", c.Key, value, c.Gold, c.Tol)
	}
	return Verdict{Annotations: []string{ann}}, nil
}

// scanLines feeds every line of path to fn until fn returns false.
// A missing output file is an error, never a silent pass.
func scanLines(ctx context.Context, path string, fn func(line string) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading output: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(sc.Text()) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading output: %w", err)
	}
	return nil
}
