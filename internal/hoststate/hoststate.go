// Package hoststate models the per-"thread" execution context that §4.C
// requires be shuttled across every switch: the host's call-frame chain,
// recursion depth, current exception, tracing flag, and contextvars
// context. The host here is simply the Go program embedding the tasklet
// package, so "call frame" and "contextvars" map onto Go's own closest
// analogues — runtime.Frame and context.Context — rather than anything
// belonging to an external scripting runtime.
package hoststate

import (
	"context"
	"runtime"
	"sync/atomic"
)

// Snapshot is one tasklet's saved view of the shuttled state. It is valid
// only while the owning tasklet is Suspended (§3.1's saved_host_context).
type Snapshot struct {
	// Frames is the captured call-frame chain, taken lazily (only when a
	// diagnostic dump is requested) rather than on every switch, since Go
	// already keeps the real frame chain live on the goroutine's own
	// parked stack — capturing it eagerly on every switch would be pure
	// overhead with no corresponding benefit.
	Frames []uintptr

	// Recursion is the nested-switch depth counter described in §4.C. No
	// code in this module updates it; the cap on runaway recursive tasklet
	// chains is enforced by internal/task's per-registry counter instead.
	Recursion int

	// Exception is the tasklet's current pending/last exception, if any.
	Exception error

	// Tracing records whether tracing was active for this tasklet.
	Tracing bool

	// Context is the tasklet's saved contextvars-equivalent context.
	Context context.Context
}

// New returns the initial Snapshot for a freshly created tasklet, inheriting
// ctx (typically the parent's context at the point of first entry, per
// §4.D's "reloads its host-context initial state from its parent's current
// context").
func New(ctx context.Context) Snapshot {
	if ctx == nil {
		ctx = context.Background()
	}
	return Snapshot{Context: ctx}
}

// CaptureFrames records the current call stack into the snapshot. Intended
// for use only on the FatalImpossible diagnostic path (§7), not on every
// switch.
func (s *Snapshot) CaptureFrames(skip int) {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+1, pcs)
	s.Frames = pcs[:n]
}

// FrameStrings renders the captured frames as human-readable lines, for
// diagnostics.
func (s Snapshot) FrameStrings() []string {
	if len(s.Frames) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(s.Frames)
	var lines []string
	for {
		frame, more := frames.Next()
		lines = append(lines, frame.Function+" ("+frame.File+")")
		if !more {
			break
		}
	}
	return lines
}

// Shuttle is the per-registry ambient state that gets captured from the
// outgoing tasklet before a switch and installed from the incoming tasklet
// after it completes (§4.C's ordering rule). It also owns the context
// version counter that invalidates caches built on the assumption that the
// active Context is unchanged.
type Shuttle struct {
	active         Snapshot
	contextVersion atomic.Uint64
}

// NewShuttle returns a Shuttle seeded with ctx as the initial ambient
// context (the root tasklet's starting state).
func NewShuttle(ctx context.Context) *Shuttle {
	return &Shuttle{active: New(ctx)}
}

// Capture copies the shuttle's current ambient state into dst, to be stored
// on the outgoing tasklet. Must be called before the stack switch proper.
func (sh *Shuttle) Capture(dst *Snapshot) {
	*dst = sh.active
}

// Install copies src into the shuttle's ambient state, to be called after
// the stack switch completes on the incoming side, and bumps the context
// version so that any cache keyed on "the active context hasn't changed" is
// invalidated.
func (sh *Shuttle) Install(src Snapshot) {
	sh.active = src
	sh.contextVersion.Add(1)
}

// ContextVersion returns the shuttle's current context generation.
func (sh *Shuttle) ContextVersion() uint64 {
	return sh.contextVersion.Load()
}

// Context returns the shuttle's currently active context.
func (sh *Shuttle) Context() context.Context {
	return sh.active.Context
}
