package executor

import (
	"strconv"
	"strings"
)

// Flags every simulation run gets ahead of the test's own arguments.
var fixedFlags = []string{"--suppress-color", "master_export=false"}

// BuildCommand renders the shell command line of an MPI test run:
//
//	<mpiCmd> <numProcs> <exe> <filename> --suppress-color master_export=false <args...>
//
// An argument containing a double quote is wrapped in single quotes so the
// shell hands it to the simulation unchanged. Other arguments are inserted
// verbatim, in order.
func BuildCommand(mpiCmd string, numProcs int, exe, filename string, args []string) string {
	tokens := make([]string, 0, 4+len(fixedFlags)+len(args))
	tokens = append(tokens, mpiCmd, strconv.Itoa(numProcs), exe, filename)
	tokens = append(tokens, fixedFlags...)
	for _, arg := range args {
		if strings.Contains(arg, `"`) {
			arg = "'" + arg + "'"
		}
		tokens = append(tokens, arg)
	}
	return strings.Join(tokens, " ")
}
