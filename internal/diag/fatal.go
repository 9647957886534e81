// Package diag wires a colorized stderr dump into internal/task's
// FatalImpossible path (§7), matching the original's habit of extensive
// diagnostic writes to stderr in the switch path (§9's open question).
// Importing this package for its side effect (as the top-level tasklet
// package does) replaces the plain fmt/os default in internal/task with
// one that color-highlights the dump using the teacher's own terminal
// library.
package diag

import (
	"fmt"

	"github.com/mattn/go-colorable"

	"github.com/tasklet-go/tasklet/internal/task"
)

func init() {
	task.FatalHandler = fatal
}

const (
	red   = "\x1b[31m"
	reset = "\x1b[0m"
)

// fatal prints msg to a colorable stderr writer, wrapped in red, and
// terminates the process with status 2 — §7's "write diagnostic and
// terminate the process", with no recoverable return.
func fatal(msg string) {
	out := colorable.NewColorableStderr()
	fmt.Fprintf(out, "%stasklet: fatal: %s%s\n", red, msg, reset)
	osExit(2)
}

// osExit is a var so tests can observe a FatalImpossible dump without
// actually terminating the test binary.
var osExit = defaultExit
