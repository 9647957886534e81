package task

// EnqueueCleanup queues t for deferred teardown on its own registry,
// because the caller (a finalizer goroutine, per Teardown's doc comment) is
// not part of that registry's goroutine tree (§4.G).
func (r *Registry) EnqueueCleanup(t *Task) {
	r.cleanup.Push(t)
}

// ServiceCleanup drains the registry's deferred cleanup queue, throwing the
// exit signal into each queued tasklet in turn. Called at the top of every
// Switch()/Throw() (in orchestrate) that executes on this registry's own
// goroutine tree; Current() does not call it. This is the Go-native equivalent of the
// original's host-provided pending-call mechanism (§5): there is no
// primitive for a finalizer goroutine to directly interrupt this registry's
// goroutine, so cleanup is serviced cooperatively instead.
func (r *Registry) ServiceCleanup() {
	for {
		t := r.cleanup.Pop()
		if t == nil {
			return
		}
		if t.Dead() {
			continue
		}
		effective, err := EffectiveTarget(t)
		if err != nil {
			continue
		}
		cur, ok := lookupCurrent()
		if !ok || cur.Registry() != r {
			// Should not happen: ServiceCleanup is only ever called from
			// this registry's own goroutine tree. Re-queue defensively
			// rather than silently dropping the tasklet.
			r.cleanup.Push(t)
			return
		}
		_, _ = r.Enter(cur, effective, Payload{Err: ErrExit})
	}
}
