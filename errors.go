package tasklet

import "github.com/tasklet-go/tasklet/internal/task"

// Sentinel errors surfaced by Switch/Throw/SetParent, matching §7's error
// taxonomy. Callers compare with errors.Is.
var (
	// ErrExit is the designated exit-sentinel exception: the default for
	// Throw, and what Teardown synthesizes when a suspended tasklet's last
	// reference drops. A tasklet whose body exits via ErrExit (or lets it
	// propagate unhandled from a Switch/Throw call) is treated as a normal
	// return, not an uncaught error.
	ErrExit = task.ErrExit

	// ErrMisuse covers §7's MisuseError row: a switch/throw targeting a
	// tasklet outside the caller's registry, or a parent reassignment that
	// would introduce a cycle or cross registries. A closed registry is
	// reported as ErrRegistryGone instead, and reassigning the parent of a
	// running tasklet as task.ErrParentWhileRunning; neither matches ErrMisuse.
	ErrMisuse = task.ErrCrossRegistry

	// ErrRegistryGone is returned when the target tasklet's registry (the
	// goroutine tree it belongs to) has already exited.
	ErrRegistryGone = task.ErrRegistryGone

	// ErrArgument is returned for a nil target/parent where a tasklet was
	// required.
	ErrArgument = task.ErrArgument
)
