// Package tasklet provides stackful, cooperatively scheduled coroutines.
//
// A Tasklet is an independent unit of execution that can suspend and resume
// at arbitrary points inside an ordinary Go function call chain, not only at
// syntactically marked yield points. Unlike a bare goroutine plus channel,
// a Tasklet has a parent (the tasklet that created it, or whichever tasklet
// was switched out of when it was created), and control returns to that
// parent automatically when the tasklet's body returns or fails.
//
// This package is the public face of internal/task, which does the actual
// work of parking and resuming goroutines as a stand-in for the native
// stack-pointer rewriting a C extension module would use (see DESIGN.md for
// why that translation is sound). Everything here is a thin wrapper over
// internal/task, which also does the argument/exception shaping; what this
// layer adds is the finalizer-driven teardown of unreachable tasklets.
package tasklet

import (
	"context"
	"runtime"

	_ "github.com/tasklet-go/tasklet/internal/diag" // wires a colorized FatalImpossible dump
	"github.com/tasklet-go/tasklet/internal/task"
)

// Body is the function a tasklet runs once, starting at its first Switch.
// self lets the body switch to its own parent or to any other tasklet it
// has a reference to. args and kwargs are whatever was passed to the
// Switch call that started the tasklet.
type Body func(self *Tasklet, args []any, kwargs map[string]any) (any, error)

// Tasklet is a single coroutine: its own logical call stack, suspended and
// resumed by Switch and Throw.
type Tasklet struct {
	t *task.Task
}

// wrap adapts an internal *task.Task to the public handle. Every call that
// would otherwise produce a wrapper for the same underlying Task (Current,
// Parent, a freshly Created tasklet observed again later, …) instead
// returns the one memoized wrapper for it, so that "the last external
// reference drops" (§4.D's teardown trigger) means what it says — with a
// fresh wrapper minted on every call, Teardown would instead fire the
// moment any single one of them was collected. Root tasklets are exempt
// from the finalizer: their lifetime is the registry's, and task.Teardown
// is a no-op for them anyway.
func wrap(t *task.Task) *Tasklet {
	if t == nil {
		return nil
	}
	candidate := &Tasklet{t: t}
	actual := t.SetPublicHandleIfAbsent(candidate).(*Tasklet)
	if actual == candidate && !t.IsRoot() {
		runtime.SetFinalizer(actual, func(w *Tasklet) {
			task.Teardown(w.t)
		})
	}
	return actual
}

// Create constructs a new, Unborn tasklet running body. If parent is nil,
// the calling goroutine's current tasklet becomes the parent (creating a
// root tasklet and registry for this goroutine tree if none exists yet).
// The tasklet does not start running until it is first switched into.
func Create(body Body, parent *Tasklet) *Tasklet {
	var p *task.Task
	if parent != nil {
		p = parent.t
	}
	tb := func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
		return body(wrap(self), args, kwargs)
	}
	return wrap(task.Create(tb, p))
}

// Current returns the tasklet currently running on the calling goroutine's
// registry, lazily creating a root tasklet if this is the first time the
// calling goroutine tree has touched the package.
func Current() *Tasklet {
	return wrap(task.Current())
}

// Dead reports whether the tasklet has returned, thrown past its own top,
// or was destroyed before ever running.
func (tk *Tasklet) Dead() bool {
	return tk.t.Dead()
}

// Parent returns the tasklet that receives control when tk's body returns
// or raises uncaught, or nil if tk is a root.
func (tk *Tasklet) Parent() *Tasklet {
	return wrap(tk.t.Parent())
}

// SetParent reassigns tk's parent. It is rejected if the new parent would
// introduce a cycle, or — once tk has started — if the new parent belongs
// to a different registry (§4.D rules a–c).
func (tk *Tasklet) SetParent(parent *Tasklet) error {
	if parent == nil {
		return ErrArgument
	}
	return tk.t.SetParent(parent.t)
}

// Forget drops the calling goroutine's binding to its tasklet registry.
// Go gives no portable notification when a goroutine exits, so a
// long-running program that manages its own pool of worker goroutines and
// knows a given goroutine is done using tasklets should call Forget from
// that goroutine before it returns; otherwise the goroutine's root tasklet
// (and so its registry) stays reachable, and Registry.Closed's cross-tree
// detection for that goroutine never reports true.
func Forget() {
	task.Forget()
}

// Context returns the context.Context most recently installed on tk's
// registry — the tasklet-scoped analogue of contextvars (§4.C). It reflects
// whichever tasklet last ran on this registry, not necessarily tk itself,
// since the underlying shuttle is per-registry (§4.E: "single tracer per
// thread" applies equally to the ambient context).
func (tk *Tasklet) Context() context.Context {
	reg := tk.t.Registry()
	if reg == nil {
		return context.Background()
	}
	return reg.Shuttle().Context()
}
