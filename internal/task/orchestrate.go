package task

import "sync/atomic"

// ArgsAndKwargs is the shaped return value of a switch/throw call that
// staged both positional and keyword arguments simultaneously (§4.E step 5's
// "two-element tuple" case). Shape returns this only when both are
// non-empty; otherwise it unwraps to a single value per the rules below.
type ArgsAndKwargs struct {
	Args   []any
	Kwargs map[string]any
}

// lineageRegistry walks up t's parent chain to the nearest ancestor with an
// assigned registry. Every root tasklet has one, so the walk always
// terminates; an Unborn, never-entered t has no registry of its own, so its
// "lineage" registry is whichever one its ancestors ultimately belong to —
// this is the Go-native reading of §4.E step 1's "current-thread's root
// equals T's lineage root" when T itself hasn't been assigned a thread yet.
func lineageRegistry(t *Task) *Registry {
	for p := t; p != nil; p = p.Parent() {
		if r := p.Registry(); r != nil {
			return r
		}
	}
	return nil
}

// Switch performs §4.E's switch(args, kwargs) on target from current, the
// registry's presently-running tasklet.
func Switch(current, target *Task, args []any, kwargs map[string]any) (any, error) {
	out, err := orchestrate(current, target, Payload{Args: args, Kwargs: kwargs})
	return shape(out, err)
}

// Throw performs §4.E's throw(exc) on target from current. A nil err
// defaults to the exit sentinel, matching §6's "default type is the
// exit-sentinel". Per §4.E, throwing into an already-Dead target degrades
// to an ordinary switch carrying no arguments, since there is no body left
// to receive the exception.
func Throw(current, target *Task, err error) (any, error) {
	if err == nil {
		err = ErrExit
	}
	if target != nil && target.Dead() {
		out, orchErr := orchestrate(current, target, Payload{})
		return shape(out, orchErr)
	}
	out, orchErr := orchestrate(current, target, Payload{Err: err})
	return shape(out, orchErr)
}

// orchestrate implements §4.E steps 1-4: validate, resolve the effective
// target, stage the payload, and perform the rendezvous. Step 5 (return
// shaping) is left to the caller (see shape) since Switch and Throw share
// this core but differ in default payload.
func orchestrate(current, target *Task, payload Payload) (Payload, error) {
	if current == nil || target == nil {
		return Payload{}, ErrArgument
	}

	reg := current.Registry()
	if reg == nil {
		return Payload{}, ErrNotRunning
	}
	reg.ServiceCleanup()

	if lineageRegistry(target) != reg {
		return Payload{}, ErrCrossRegistry
	}
	if tr := target.Registry(); tr != nil && tr != reg {
		return Payload{}, ErrCrossRegistry
	}

	// reg.Closed() is reachable here, not just from Teardown's finalizer
	// path: Forget marks a registry closed the moment it runs on the
	// goroutine bound to that registry's root, regardless of whether some
	// other live *Task still references the registry (which is exactly
	// what keeps the root itself reachable and its finalizer from ever
	// running). current or target can observe that if the root's own
	// goroutine called Forget on itself while a tasklet on some other,
	// still-running goroutine in the same tree goes on to switch.
	if reg.Closed() {
		return Payload{}, ErrRegistryGone
	}

	effective, err := EffectiveTarget(target)
	if err != nil {
		// Unlike deliverToParent's use of the same walk, a direct caller-
		// initiated switch/throw against an exhausted chain is not a dying
		// tasklet mid-unwind — nothing here requires the process to
		// terminate, so the failure is simply reported to the caller.
		return Payload{}, err
	}

	if err := reg.enterRecursion(); err != nil {
		return Payload{}, err
	}
	defer reg.exitRecursion()

	return reg.Enter(current, effective, payload)
}

// shape applies §4.E step 5's return-value shaping rule.
func shape(in Payload, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if in.Err != nil {
		return nil, in.Err
	}
	switch {
	case len(in.Args) == 0 && len(in.Kwargs) == 0:
		return nil, nil
	case len(in.Args) > 0 && len(in.Kwargs) == 0:
		if len(in.Args) == 1 {
			return in.Args[0], nil
		}
		return in.Args, nil
	case len(in.Args) == 0 && len(in.Kwargs) > 0:
		return in.Kwargs, nil
	default:
		return ArgsAndKwargs{Args: in.Args, Kwargs: in.Kwargs}, nil
	}
}

// recursion is a per-registry counter of nested Enter calls currently on
// the stack, guarding against runaway recursive tasklet chains (§4.C's
// recursion depth counter; see maxRecursion in switch.go). Declared here
// rather than embedded in Registry's struct literal so Registry itself
// stays readable with the bulk of its fields grouped in registry.go.
type recursionGuard struct {
	depth atomic.Int32
}

func (r *Registry) enterRecursion() error {
	if r.recursion.depth.Add(1) > maxRecursion {
		r.recursion.depth.Add(-1)
		return ErrRecursionLimit
	}
	return nil
}

func (r *Registry) exitRecursion() {
	r.recursion.depth.Add(-1)
}
