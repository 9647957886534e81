package task

import "errors"

// ErrExit is the designated exit-sentinel exception (§7's ExitSignal,
// §4.D's teardown and §6's throw() default). A tasklet whose body exits via
// ErrExit is treated as a normal return rather than an uncaught exception;
// its payload (if any) becomes the return value.
var ErrExit = errors.New("task: exit signal")

// ErrNotRunning is returned when Enter is asked to switch away from a task
// that is not the registry's current task.
var ErrNotRunning = errors.New("task: outgoing tasklet is not the running tasklet of its registry")

// ErrCrossRegistry is returned when a switch targets a tasklet belonging to
// a different registry (§4.E step 1, §7's MisuseError row, scenario 5).
var ErrCrossRegistry = errors.New("task: tasklet belongs to a different registry")

// ErrRegistryGone is returned when a switch targets a tasklet whose
// registry has been marked closed (§5's "thread has exited" case).
var ErrRegistryGone = errors.New("task: target tasklet's registry has exited")

// ErrAlreadyStarted distinguishes the case from original_source where a
// retried first-entry discovers the target died (rather than merely
// started) during the race window described in §4.D's concurrent first
// entry handling.
var ErrAlreadyStarted = errors.New("task: tasklet died before its first entry could complete")

// ErrNoEffectiveTarget is FatalImpossible (§7): the effective-target walk
// exhausted the parent chain without finding a receiver.
var ErrNoEffectiveTarget = errors.New("task: no ancestor is able to receive control")

// ErrArgument is the Go analogue of §7's ArgumentError: a nil tasklet was
// passed where one was required (a nil body is not checked). Go's static typing already
// rules out the original's "not an exception class/instance" case, since
// Throw takes a plain error rather than an arbitrary value.
var ErrArgument = errors.New("task: invalid argument")

// ErrRecursionLimit is returned when a registry's nested-switch depth
// exceeds maxRecursion (§4.C's recursion counter), guarding against a
// tasklet chain that switches into itself without bound.
var ErrRecursionLimit = errors.New("task: recursion limit exceeded")

// ErrParentWhileRunning is returned by SetParent against a Running tasklet
// (only the tasklet itself is running at the time it would try this, since
// a tasklet cannot be Running and have SetParent called on it from
// elsewhere in the same registry at the same time): §3.1's "mutable only
// while the tasklet is not currently running".
var ErrParentWhileRunning = errors.New("task: cannot reassign parent of a running tasklet")
