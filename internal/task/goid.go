package task

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// currentByGoroutine maps a goroutine id to the Task currently executing on
// it. Go has no goroutine-local storage, so this is the Go-native stand-in
// for the thread-local pointer the original keeps for Current() (§4.F): one
// entry per live tasklet goroutine, plus one for whichever goroutine first
// touches the package and gets a lazily-created root.
//
// Entries are removed as soon as a tasklet goroutine's trampoline returns,
// since Go goroutine ids are reused once a goroutine exits; an entry left
// behind past that point could otherwise be misattributed to an unrelated
// later goroutine.
var currentByGoroutine sync.Map // uint64 -> *Task

// goroutineID extracts the calling goroutine's runtime id by parsing the
// header line of runtime.Stack's output ("goroutine 123 [running]:"). This
// is the only portable, cgo-free way to obtain a goroutine identity in Go;
// it is a well-known trick (the same one used by goroutine-local-storage
// packages in the ecosystem) rather than anything officially supported, and
// is only ever used here for the TLS-equivalent lookup, never for control
// flow correctness — correctness comes from the channel rendezvous in
// switch.go.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	const prefix = "goroutine "
	buf = bytes.TrimPrefix(buf, []byte(prefix))
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, _ := strconv.ParseUint(string(buf), 10, 64)
	return id
}

// bindCurrentGoroutine records that t is now executing on the calling
// goroutine.
func bindCurrentGoroutine(t *Task) {
	currentByGoroutine.Store(goroutineID(), t)
}

// unbindCurrentGoroutine removes the calling goroutine's registration. Must
// be called just before a tasklet's backing goroutine returns.
func unbindCurrentGoroutine() {
	currentByGoroutine.Delete(goroutineID())
}

// lookupCurrent returns the Task bound to the calling goroutine, if any.
func lookupCurrent() (*Task, bool) {
	v, ok := currentByGoroutine.Load(goroutineID())
	if !ok {
		return nil, false
	}
	return v.(*Task), true
}

// Forget drops the calling goroutine's registry binding. Go gives no
// portable notification when a goroutine exits (unlike a pthread TLS
// destructor, which is what the original relies on to detect "thread has
// exited" for §5's cleanup path), so without this call a root tasklet
// stays reachable through currentByGoroutine for the lifetime of the
// process even after the goroutine that created it returns. A long-running
// program that manages its own pool of worker goroutines and knows when
// one is done with the package should call Forget from that goroutine
// before it returns.
//
// If the calling goroutine is the one bound to its registry's root — i.e.
// this is the goroutine that originally created the registry via Current
// — Forget also marks the registry closed immediately. This is what makes
// Registry.Closed() (and so ErrRegistryGone in orchestrate.go) observable
// without waiting on GC: any other tasklet belonging to this registry is
// still a live, reachable *Task for as long as some other goroutine holds
// one, which keeps the registry (and its root) reachable and its
// finalizer from ever running; an explicit Forget from the root's own
// goroutine is the only way to mark the registry gone while that remains
// true.
func Forget() {
	if t, ok := lookupCurrent(); ok && t.IsRoot() {
		if reg := t.Registry(); reg != nil {
			reg.markClosed()
		}
	}
	unbindCurrentGoroutine()
}
