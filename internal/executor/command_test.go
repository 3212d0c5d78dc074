package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/mpi-testslot/internal/executor"
)

func TestBuildCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "no extra arguments",
			want: "mpiexec -np 4 /opt/opensn/bin/opensn sweep.lua --suppress-color master_export=false",
		},
		{
			name: "plain arguments keep their order",
			args: []string{"-v", "3", "nx=10"},
			want: "mpiexec -np 4 /opt/opensn/bin/opensn sweep.lua --suppress-color master_export=false -v 3 nx=10",
		},
		{
			name: "arguments with a double quote are single quoted",
			args: []string{`mesh="box.obj"`, "nx=10", `title="a b"`},
			want: `mpiexec -np 4 /opt/opensn/bin/opensn sweep.lua --suppress-color master_export=false 'mesh="box.obj"' nx=10 'title="a b"'`,
		},
		{
			name: "single quotes alone are left alone",
			args: []string{"name='x'"},
			want: "mpiexec -np 4 /opt/opensn/bin/opensn sweep.lua --suppress-color master_export=false name='x'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := executor.BuildCommand("mpiexec -np", 4, "/opt/opensn/bin/opensn", "sweep.lua", tt.args)
			assert.Equal(t, tt.want, got)
		})
	}
}
