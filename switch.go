package tasklet

import "github.com/tasklet-go/tasklet/internal/task"

// ArgsAndKwargs is returned by Switch/Throw when the call site staged both
// positional and keyword arguments at once — §4.E step 5's two-element
// tuple case. A call that staged only one kind unwraps to that value
// directly (a bare value for a single positional argument, a slice for
// several, or the keyword map), so callers only need to type-assert against
// ArgsAndKwargs when they know both were used.
type ArgsAndKwargs = task.ArgsAndKwargs

// Switch transfers control to tk, delivering args as tk's own Switch (or,
// on first entry, Body) arguments. It blocks until something switches back
// into the caller, and returns whatever was delivered at that point, shaped
// per §4.E step 5.
func (tk *Tasklet) Switch(args ...any) (any, error) {
	return task.Switch(task.Current(), tk.t, args, nil)
}

// SwitchKwargs is Switch with only keyword arguments staged.
func (tk *Tasklet) SwitchKwargs(kwargs map[string]any) (any, error) {
	return task.Switch(task.Current(), tk.t, nil, kwargs)
}

// SwitchFull is Switch with both positional and keyword arguments staged at
// once.
func (tk *Tasklet) SwitchFull(args []any, kwargs map[string]any) (any, error) {
	return task.Switch(task.Current(), tk.t, args, kwargs)
}

// Throw switches to tk with a pending exception instead of arguments. err
// defaults to ErrExit (§6: "default type is the exit-sentinel"). If tk is
// already Dead, Throw degrades to an ordinary no-argument switch, per
// §4.E's special case.
func (tk *Tasklet) Throw(err error) (any, error) {
	return task.Throw(task.Current(), tk.t, err)
}
