// Package task implements the stack-switching engine and tasklet lifecycle
// that the public tasklet package builds its API on top of.
//
// Go does not let portable code rewrite the stack pointer, so unlike the
// C implementation this is adapted from, a tasklet here is not a region of
// shared native stack: it is a goroutine parked on a rendezvous channel.
// The parked goroutine's own stack (heap-allocated and grown by the Go
// runtime) is its suspended state, which is why the stack-eviction
// machinery of the original has no bytes left to move — see stack.go.
package task

import (
	"sync"

	"github.com/tasklet-go/tasklet/internal/hoststate"
)

// State is a tasklet's position in the lifecycle state machine.
type State int32

const (
	// Unborn tasklets have never been entered; switching to one starts it.
	Unborn State = iota
	// Running is the currently executing tasklet of its registry. At most
	// one tasklet per registry is Running at any time.
	Running
	// Suspended tasklets are parked on resumeCh, waiting to be switched
	// back into.
	Suspended
	// Dead tasklets are terminal: their body has returned, thrown past its
	// own top, or they were destroyed before ever running.
	Dead
)

func (s State) String() string {
	switch s {
	case Unborn:
		return "unborn"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Dead:
		return "dead"
	default:
		return "invalid"
	}
}

// Payload is handed across a switch: either positional/keyword arguments, or
// a pending exception (Err != nil) to be raised at the receiving side.
type Payload struct {
	Args   []any
	Kwargs map[string]any
	Err    error

	// From is the tasklet that initiated this handoff, filled in by
	// handOff immediately before the channel send. The receiving side uses
	// it as the tracing callback's "source" argument (§4.E step 4).
	From *Task
}

// Body is the user-supplied callable invoked once at a tasklet's first
// entry. self is the tasklet running the body, so it can switch to its own
// parent or elsewhere.
type Body func(self *Task, args []any, kwargs map[string]any) (any, error)

// Task is the engine-level tasklet object. The public tasklet.Tasklet is a
// thin wrapper around one of these.
type Task struct {
	mu sync.Mutex // guards the fields below, shared with Registry bookkeeping

	parent   *Task
	registry *Registry
	state    State

	// generation is this task's position in the stack chain, assigned at
	// first entry. It is the Go-native stand-in for the original's
	// stack_stop: a strictly increasing sequence number rather than an
	// address, since there is no shared native stack to order by address.
	generation uint64
	stackPrev  *Task

	host hoststate.Snapshot

	body     Body
	launched bool
	resumeCh chan Payload

	// cleanupNext links this task into a Registry's deferred cleanup Queue
	// when its last reference drops on a foreign registry. See cleanup.go.
	cleanupNext *Task

	// cleanupQueued is set the first time Teardown pushes this task onto a
	// Queue, so a redundant Teardown call (the finalizer firing twice would
	// be a Go runtime bug, but nothing stops a caller from invoking Teardown
	// directly more than once) is a no-op instead of corrupting the Queue's
	// intrusive cleanupNext chain with a second, overlapping link.
	cleanupQueued bool

	isRoot bool

	// public memoizes the one public-package handle wrapping this Task, so
	// that every caller who asks for the same Task (via Parent, Current,
	// the return value of Create, …) observes the identical Go pointer.
	// Without this, each call would mint a fresh wrapper with its own
	// runtime.SetFinalizer, and Teardown would fire the first time *any* of
	// those wrappers was collected rather than the last — breaking §4.D's
	// "last external reference" semantics. Declared as `any` (rather than a
	// concrete wrapper type) because the public package imports this one,
	// not the other way around.
	public any
}

// PublicHandle returns the memoized public-package wrapper for t, or nil if
// none has been installed yet.
func (t *Task) PublicHandle() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.public
}

// SetPublicHandleIfAbsent installs h as t's memoized wrapper if none is
// installed yet, and returns whichever handle is now installed (h, or the
// one a concurrent caller won the race to install first).
func (t *Task) SetPublicHandleIfAbsent(h any) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.public == nil {
		t.public = h
	}
	return t.public
}

// New creates an Unborn, non-root tasklet with the given body and parent.
// Construction never assigns a registry or starts the tasklet.
func New(body Body, parent *Task) *Task {
	return &Task{
		parent:   parent,
		body:     body,
		state:    Unborn,
		resumeCh: make(chan Payload),
	}
}

// newRoot creates the implicit root tasklet of a freshly created registry.
func newRoot() *Task {
	return &Task{
		state:    Running,
		resumeCh: make(chan Payload),
		isRoot:   true,
	}
}

// State returns the tasklet's current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Dead reports whether the tasklet has terminated.
func (t *Task) Dead() bool {
	return t.State() == Dead
}

// IsRoot reports whether t is the implicit root of its registry.
func (t *Task) IsRoot() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isRoot
}

// Parent returns t's current parent, or nil if t is a root.
func (t *Task) Parent() *Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.parent
}

// Registry returns the registry t belongs to, or nil if t has not yet been
// entered (and so has not been assigned one).
func (t *Task) Registry() *Registry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.registry
}

// Generation returns the sequence number assigned to t at first entry, or 0
// if t has never been entered. Exposed for introspection and tests of the
// stack-chain ordering invariant (I2).
func (t *Task) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// Launched reports whether t's trampoline goroutine has ever been started.
// Exposed for B1: a tasklet created and dropped without ever being switched
// into must never have its body invoked.
func (t *Task) Launched() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.launched
}
