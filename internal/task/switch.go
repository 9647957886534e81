package task

import (
	"errors"
	"fmt"

	"github.com/tasklet-go/tasklet/internal/hoststate"
)

// maxRecursion caps the nested-switch depth tracked by the registry's
// recursionGuard (§4.C's recursion counter), guarding against a tasklet chain that calls
// into itself without bound — in the original this protects the host
// interpreter's C stack; here it protects against pathological goroutine
// fan-out.
const maxRecursion = 1 << 16

// Enter performs the actual rendezvous between outgoing (the registry's
// current tasklet) and target (an Unborn or Suspended tasklet already
// established as the effective target). It is component A+B+C's Go-native
// core: a channel handoff standing in for the platform stack switch,
// bracketed by the bookkeeping relink from stack.go and the host-context
// shuttle from hoststate.
//
// Enter blocks until something switches back into outgoing, and returns the
// Payload that was delivered at that point. Per §4.E step 4, the tracing
// callback for that resumption — event name, (source, destination) — is
// fired here, on the goroutine that is waking back up, since that is the
// Go-native rendezvous's "other side" of the switch.
func (r *Registry) Enter(outgoing, target *Task, payload Payload) (Payload, error) {
	if target == outgoing {
		// Self-switch: a documented no-op (R2), but still fires exactly one
		// trace event.
		if traceErr := r.fireTrace(eventName(payload), outgoing, outgoing); traceErr != nil {
			return Payload{Err: traceErr}, nil
		}
		return payload, nil
	}

	if err := r.handOff(outgoing, target, payload, false); err != nil {
		return Payload{}, err
	}

	in := <-outgoing.resumeCh

	r.mu.Lock()
	outgoing.mu.Lock()
	outgoing.state = Running
	outgoing.mu.Unlock()
	r.current = outgoing
	r.mu.Unlock()

	r.shuttle.Install(outgoing.host)
	if traceErr := r.fireTrace(eventName(in), in.From, outgoing); traceErr != nil {
		// §9: a tracer error discards the tracer and converts the in-flight
		// value into an exception delivered at the destination (outgoing).
		in = Payload{Err: traceErr}
	}
	return in, nil
}

// EnterFinal hands the dying tasklet outgoing's result to target without
// waiting to be resumed — outgoing is terminal (Dead) and will never run
// again, so unlike Enter this is a one-way send: the trampoline goroutine
// that calls this returns immediately afterward. Tracing for this handoff
// fires on target's side, inside its own Enter/trampoline wake-up, exactly
// as an ordinary switch's does.
func (r *Registry) EnterFinal(outgoing, target *Task, payload Payload) error {
	return r.handOff(outgoing, target, payload, true)
}

// eventName reports the tracing event name for a payload per §4.E step 4:
// "switch", unless the payload carries a pending exception, in which case
// "throw".
func eventName(p Payload) string {
	if p.Err != nil {
		return "throw"
	}
	return "switch"
}

// handOff contains the bookkeeping shared by Enter and EnterFinal: relink
// the stack chain, capture the outgoing tasklet's host context (unless it
// is dying, in which case there is nothing worth preserving), mark target
// Running, launch its goroutine on first entry, and send it the payload.
func (r *Registry) handOff(outgoing, target *Task, payload Payload, dying bool) error {
	r.mu.Lock()
	if r.current != outgoing {
		r.mu.Unlock()
		return ErrNotRunning
	}

	// Re-check target's state under lock rather than trusting whatever
	// EffectiveTarget observed: a concurrent Teardown finalizer (running on
	// its own goroutine, never this registry's) can mark a never-entered
	// target Dead in the window between that walk and this handoff — the
	// Go-native analogue of §4.D's "concurrent first entry" race, where the
	// original's attribute lookup can run host code that starts the same
	// target out from under the caller. Either way the caller should see a
	// distinguished error rather than silently resurrecting a dead tasklet.
	target.mu.Lock()
	if target.state == Dead {
		target.mu.Unlock()
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	first := target.state == Unborn
	target.state = Running
	target.mu.Unlock()

	if !dying {
		r.shuttle.Capture(&outgoing.host)
	}
	r.relinkLocked(outgoing, target)

	if !dying {
		outgoing.mu.Lock()
		outgoing.state = Suspended
		outgoing.mu.Unlock()
	}

	r.current = target
	r.mu.Unlock()

	if first {
		target.mu.Lock()
		target.launched = true
		target.registry = r
		// §4.D first entry: "reloads its host-context initial state from
		// its parent's current context". outgoing was r.current (and so
		// the registry's ambient context) right up until the lines above,
		// so r.shuttle's still-installed state at this point is exactly
		// that context.
		target.host = hoststate.New(r.shuttle.Context())
		target.mu.Unlock()
		go target.trampoline(r)
	}

	payload.From = outgoing
	target.resumeCh <- payload
	return nil
}

// trampoline is the goroutine body launched at a tasklet's first entry
// (§4.A's "the primitive must return twice": once here, on the child side,
// and once from the Enter call on the parent side that launched it).
func (t *Task) trampoline(r *Registry) {
	bindCurrentGoroutine(t)
	defer unbindCurrentGoroutine()

	payload := <-t.resumeCh
	r.shuttle.Install(t.host)
	if traceErr := r.fireTrace(eventName(payload), payload.From, t); traceErr != nil {
		// §9: the tracer's error replaces the delivered value, as in Enter.
		payload = Payload{Err: traceErr, From: payload.From}
	}

	// A thrown exception delivered straight into first entry (no body code
	// has run yet to observe it) degrades to the exit-signal translation
	// below exactly as if the body itself had received and returned it —
	// there is nothing else it could mean for an Unborn tasklet.
	var result any
	outErr := payload.Err
	if outErr == nil {
		result, outErr = t.body(t, payload.Args, payload.Kwargs)
	}

	// §4.D normal exit: the designated exit-sentinel exception is translated
	// into a normal return of its payload (here, whatever value accompanied
	// it) rather than propagated as an uncaught exception.
	if errors.Is(outErr, ErrExit) {
		outErr = nil
	}

	t.mu.Lock()
	t.state = Dead
	t.body = nil // consumed after first entry, per §3.1
	t.mu.Unlock()

	t.deliverToParent(r, result, outErr)
}

// deliverToParent hands a dying tasklet's outcome to the first ancestor
// able to receive it (§4.D's normal exit, §4.E's effective-target walk),
// looping through any already-dead parents.
func (t *Task) deliverToParent(r *Registry, result any, outErr error) {
	parent := t.Parent()
	if parent == nil {
		t.fatalNoAncestor(r, ErrNoEffectiveTarget)
		return
	}
	effective, err := EffectiveTarget(parent)
	if err != nil {
		t.fatalNoAncestor(r, err)
		return
	}

	var payload Payload
	if outErr != nil {
		payload = Payload{Err: outErr}
	} else {
		payload = Payload{Args: []any{result}}
	}
	_ = r.EnterFinal(t, effective, payload)
}

// fatalNoAncestor builds the diagnostic dump described in §7's
// FatalImpossible row — registry id, the dying tasklet's position in the
// stack-chain generation sequence, and a captured stack trace — and hands
// it to FatalHandler, which by default prints it and terminates the
// process; internal/diag overrides it with a colorized version (see that
// package's init).
func (t *Task) fatalNoAncestor(r *Registry, cause error) {
	var snap hoststate.Snapshot
	snap.CaptureFrames(1)
	msg := fmt.Sprintf(
		"%v: dying tasklet %p (generation %d) on registry osthread=%d has no living ancestor to receive control\n%s",
		cause, t, t.Generation(), r.OSThreadID(), joinLines(snap.FrameStrings()),
	)
	FatalHandler(msg)
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += "  " + l + "\n"
	}
	return out
}
