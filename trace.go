package tasklet

import "github.com/tasklet-go/tasklet/internal/task"

// TraceFunc is invoked on every switch/throw that completes a rendezvous
// (§4.E, §9). event is "switch" or "throw"; from and to are the source and
// destination tasklets — to is always whichever tasklet just resumed
// running. A tracer that panics (with an error, or anything else) is
// uninstalled and its (wrapped) panic value is delivered as the in-progress
// switch's outcome instead, at the destination, per §9's tracing
// re-entrancy note.
type TraceFunc func(event string, from, to *Tasklet)

// SetTrace installs fn as the calling goroutine's registry's tracer,
// returning whichever tracer was previously installed (nil if none). There
// is exactly one tracer per registry, matching §4.E's "single tracer per
// thread".
func SetTrace(fn TraceFunc) TraceFunc {
	reg := currentRegistry()
	prev := reg.SetTrace(adapt(fn))
	return unadapt(prev)
}

// GetTrace returns the calling goroutine's registry's currently installed
// tracer, or nil.
func GetTrace() TraceFunc {
	return unadapt(currentRegistry().GetTrace())
}

func currentRegistry() *task.Registry {
	return task.Current().Registry()
}

func adapt(fn TraceFunc) task.TraceFunc {
	if fn == nil {
		return nil
	}
	return func(event string, from, to *task.Task) {
		fn(event, wrap(from), wrap(to))
	}
}

// unadapt can't recover the original *Tasklet-typed TraceFunc from the
// task.TraceFunc closure adapt produced, since the conversion is one-way;
// it instead returns a fresh TraceFunc that behaves identically, which is
// all SetTrace's "return the previous callback" contract requires.
func unadapt(fn task.TraceFunc) TraceFunc {
	if fn == nil {
		return nil
	}
	return func(event string, from, to *Tasklet) {
		var ft, tt *task.Task
		if from != nil {
			ft = from.t
		}
		if to != nil {
			tt = to.t
		}
		fn(event, ft, tt)
	}
}
