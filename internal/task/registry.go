package task

import (
	"sync"
	"sync/atomic"

	"github.com/tasklet-go/tasklet/internal/hoststate"
)

// TraceFunc is invoked on every switch. event is "switch" or "throw"; from
// and to are the source and destination tasklets.
type TraceFunc func(event string, from, to *Task)

// Registry is the Go-native stand-in for the original's per-OS-thread
// registry (§3.2, §4.F). Go does not expose portable goroutine-to-OS-thread
// pinning that one goroutine can lend to another, so instead of keying the
// registry by OS thread, it is keyed by "the tree of goroutines descended
// from whichever goroutine first touched this package" — see goid.go. A
// Registry is created lazily the first time Current or Create runs on a new
// goroutine, exactly mirroring the original's lazy root creation.
type Registry struct {
	mu sync.Mutex

	root    *Task
	current *Task
	chain   *Task // head of the descending-generation stack chain, see stack.go
	nextGen uint64

	tracer atomic.Pointer[TraceFunc]

	shuttle *hoststate.Shuttle

	cleanup Queue

	recursion recursionGuard

	// osThreadID is the OS thread id observed when the registry was
	// created, recorded only for diagnostics (see tid_*.go): Go goroutines
	// can migrate OS threads across blocking calls, so unlike the
	// original's thread_id this is never authoritative for correctness.
	osThreadID int64

	// closed is set by markClosed: when Forget runs on the root's own
	// goroutine, or when the root tasklet's finalizer runs. A tasklet whose
	// last external reference drops once its registry is closed is forced
	// Dead in place instead of being queued for the exit signal — see
	// Teardown in lifecycle.go and §4.D's teardown rule.
	closed atomic.Bool
}

// newRegistry constructs a Registry with a freshly created, already-Running
// root tasklet.
func newRegistry() *Registry {
	r := &Registry{
		osThreadID: currentOSThreadID(),
		shuttle:    hoststate.NewShuttle(nil),
	}
	root := newRoot()
	root.registry = r
	r.root = root
	r.current = root
	r.chain = root
	r.nextGen = 1
	root.generation = 0
	return r
}

// CurrentTask returns the tasklet the registry currently considers Running.
func (r *Registry) CurrentTask() *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Root returns the registry's root tasklet.
func (r *Registry) Root() *Task {
	return r.root
}

// OSThreadID returns the OS thread id observed when the registry was
// created. Diagnostic only — see the field's doc comment.
func (r *Registry) OSThreadID() int64 {
	return r.osThreadID
}

// Shuttle returns the registry's host-context shuttle (§4.C).
func (r *Registry) Shuttle() *hoststate.Shuttle {
	return r.shuttle
}

// Closed reports whether the registry's owning goroutine tree is known to
// have exited (see markClosed).
func (r *Registry) Closed() bool {
	return r.closed.Load()
}

// markClosed is invoked by Forget when it runs on the goroutine bound to the
// registry's root, and by the root tasklet's finalizer once nothing
// reachable still references the registry's root.
func (r *Registry) markClosed() {
	r.closed.Store(true)
}

// SetTrace installs fn as the registry's tracer and returns the previous
// one (nil if none was installed).
func (r *Registry) SetTrace(fn TraceFunc) TraceFunc {
	var prev TraceFunc
	if p := r.tracer.Load(); p != nil {
		prev = *p
	}
	if fn == nil {
		r.tracer.Store(nil)
	} else {
		r.tracer.Store(&fn)
	}
	return prev
}

// GetTrace returns the registry's current tracer, or nil.
func (r *Registry) GetTrace() TraceFunc {
	if p := r.tracer.Load(); p != nil {
		return *p
	}
	return nil
}

// fireTrace invokes the tracer, if any, and returns the error it raised (if
// it raised one), uninstalling the tracer in that case — see §4.E and §9.
func (r *Registry) fireTrace(event string, from, to *Task) error {
	p := r.tracer.Load()
	if p == nil {
		return nil
	}
	fn := *p
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.tracer.Store(nil)
				if e, ok := rec.(error); ok {
					err = e
				} else {
					err = &tracerPanic{rec}
				}
			}
		}()
		fn(event, from, to)
	}()
	return err
}

type tracerPanic struct{ v any }

func (e *tracerPanic) Error() string { return "tasklet: tracer panicked" }
