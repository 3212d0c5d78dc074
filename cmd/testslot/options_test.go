package main

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestParseOptions_Defaults(t *testing.T) {
	o, err := parseOptions([]string{"-exe", "opensn"}, envOf(nil), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, ".", o.Dir)
	assert.Equal(t, "opensn", o.Executable)
	assert.Equal(t, "mpiexec -np", o.MPICommand)
	assert.GreaterOrEqual(t, o.Jobs, 1)
	assert.Equal(t, "shell", o.Launcher)
	assert.Equal(t, "auto", o.Color)
	assert.Empty(t, o.DBPath)
	assert.Empty(t, o.Manifests)
	assert.False(t, o.Verbose)
}

func TestParseOptions_EnvAndFlags(t *testing.T) {
	env := envOf(map[string]string{
		"TESTSLOT_EXE":     "/opt/opensn",
		"TESTSLOT_JOBS":    "3",
		"TESTSLOT_VERBOSE": "true",
		"TESTSLOT_DB":      "out/results.db",
	})

	o, err := parseOptions([]string{"-jobs", "5", "-manifest", "a/tests.yaml", "-manifest", "b/tests.yaml"}, env, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "/opt/opensn", o.Executable, "from environment")
	assert.Equal(t, 5, o.Jobs, "flag wins over environment")
	assert.True(t, o.Verbose)
	assert.Equal(t, "out/results.db", o.DBPath)
	assert.Equal(t, []string{"a/tests.yaml", "b/tests.yaml"}, o.Manifests)
}

func TestParseOptions_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"missing exe", nil, nil},
		{"zero jobs", []string{"-exe", "x", "-jobs", "0"}, nil},
		{"bad launcher", []string{"-exe", "x", "-launcher", "slurm"}, nil},
		{"bad colour", []string{"-exe", "x", "-color", "rainbow"}, nil},
		{"bad env jobs", []string{"-exe", "x"}, map[string]string{"TESTSLOT_JOBS": "many"}},
		{"unknown flag", []string{"-exe", "x", "-fast"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOptions(tt.args, envOf(tt.env), io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestUseColor(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.True(t, options{Color: "always"}.useColor(f))
	assert.False(t, options{Color: "never"}.useColor(f))
	assert.False(t, options{Color: "auto"}.useColor(f), "a regular file is not a terminal")
}
