package task

import "runtime"

// Create constructs a new Unborn tasklet. If parent is nil, the caller's
// current tasklet (creating one lazily, per §4.F, if this goroutine has
// never touched the package before) becomes the parent. Construction does
// not assign a registry or start the tasklet (§4.D).
func Create(body Body, parent *Task) *Task {
	if parent == nil {
		parent = Current()
	}
	return New(body, parent)
}

// Current returns the tasklet bound to the calling goroutine, lazily
// creating a registry and root tasklet if this goroutine has never been
// seen before (§4.F).
func Current() *Task {
	if t, ok := lookupCurrent(); ok {
		return t
	}
	r := newRegistry()
	bindCurrentGoroutine(r.root)
	runtime.SetFinalizer(r.root, func(root *Task) {
		root.registry.markClosed()
	})
	return r.root
}

// checkParentCycle walks up from candidate looking for this task, per
// §4.D's parent-reassignment rule (b): no cycle may be introduced. It also
// implements rule (c): once this task has started, every ancestor of the
// proposed parent must trace back to a non-dead root on this task's own
// registry.
func (t *Task) checkParentCycle(candidate *Task) error {
	started := t.Registry() != nil
	for p := candidate; p != nil; p = p.Parent() {
		if p == t {
			return ErrCrossRegistry // reuse: "would introduce a cycle"
		}
		if started {
			if reg := p.Registry(); reg != nil && reg != t.Registry() {
				return ErrCrossRegistry
			}
		}
		if p.IsRoot() {
			break
		}
	}
	return nil
}

// SetParent reassigns t's parent, enforcing §4.D's rules: no cycle, and (for
// an already-started tasklet) no crossing registries.
func (t *Task) SetParent(newParent *Task) error {
	t.mu.Lock()
	if t.state == Running {
		t.mu.Unlock()
		return ErrParentWhileRunning
	}
	t.mu.Unlock()

	if err := t.checkParentCycle(newParent); err != nil {
		return err
	}
	if t.registry != nil && newParent.Registry() != nil && newParent.Registry() != t.registry {
		return ErrCrossRegistry
	}

	t.mu.Lock()
	t.parent = newParent
	t.mu.Unlock()
	return nil
}

// EffectiveTarget walks target's parent chain, skipping Dead tasklets,
// until it finds one that is Unborn or Suspended (§4.E step 2). It returns
// ErrNoEffectiveTarget if the chain is exhausted — a FatalImpossible
// condition (§7).
func EffectiveTarget(target *Task) (*Task, error) {
	for t := target; t != nil; t = t.Parent() {
		switch t.State() {
		case Unborn, Suspended:
			return t, nil
		case Running:
			return t, nil // switching to the currently running tasklet: a documented no-op (R2)
		}
	}
	return nil, ErrNoEffectiveTarget
}

// Teardown is invoked from a runtime.SetFinalizer callback registered by the
// public package when a Tasklet wrapper is constructed, when the last
// external reference to a Suspended, non-root tasklet drops. Go finalizers
// always run on a goroutine managed by the runtime, never on the tasklet's
// own registry's goroutine tree, so unlike the original (which can run its
// destructor inline when destruction happens to occur on the tasklet's own
// thread) every Teardown call here takes the cross-registry path: queue the
// tasklet for deferred cleanup (§4.G), to be serviced the next time its own
// registry's goroutine tree calls back into the package (see
// Registry.ServiceCleanup). If that registry is already closed — its root
// is unreachable, so its owning goroutine tree is gone — the tasklet is
// forced Dead in place without running cleanup, per §4.D and §5's open
// question about that policy.
func Teardown(t *Task) {
	if t.IsRoot() || t.Dead() {
		return
	}
	reg := t.Registry()
	if reg == nil {
		// Never entered: mark Dead in place, no body ever ran (B1).
		t.mu.Lock()
		t.state = Dead
		t.mu.Unlock()
		return
	}
	if reg.Closed() {
		t.mu.Lock()
		t.state = Dead
		t.mu.Unlock()
		return
	}
	t.mu.Lock()
	if t.cleanupQueued {
		t.mu.Unlock()
		return
	}
	t.cleanupQueued = true
	t.mu.Unlock()
	reg.EnqueueCleanup(t)
}
