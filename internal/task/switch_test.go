package task_test

import (
	"errors"
	"testing"

	"github.com/tasklet-go/tasklet/internal/task"
)

// freshCurrent gives each test its own goroutine — and so its own registry
// — since task.Current lazily binds one registry per goroutine tree and
// tests otherwise share the package-level goroutine-id table.
func freshCurrent(t *testing.T) *task.Task {
	t.Helper()
	ch := make(chan *task.Task, 1)
	go func() {
		ch <- task.Current()
		task.Forget()
	}()
	return <-ch
}

// runOnGoroutine runs fn on a dedicated goroutine and waits for it,
// forwarding a t.Fatal from inside fn back to the test goroutine.
func runOnGoroutine(t *testing.T, fn func(t *testing.T)) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(t)
	}()
	<-done
}

func TestSimpleRoundTrip(t *testing.T) {
	// Scenario 1: root creates a child whose body switches 42 back to the
	// parent; root observes 42, then resumes the child, whose body returns,
	// leaving it Dead.
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			return task.Switch(self, root, []any{42}, nil)
		}, root)

		got, err := task.Switch(root, child, nil, nil)
		if err != nil {
			t.Fatalf("Switch: %v", err)
		}
		if got != 42 {
			t.Fatalf("got %v, want 42", got)
		}
		if _, err := task.Switch(root, child, nil, nil); err != nil {
			t.Fatalf("resuming child: %v", err)
		}
		if !child.Dead() {
			t.Fatalf("child should be Dead after falling off the end")
		}
	})
}

func TestYieldAndResume(t *testing.T) {
	// Scenario 2.
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			v1, err := task.Switch(self, root, []any{"a"}, nil)
			if err != nil {
				return nil, err
			}
			v2, err := task.Switch(self, root, []any{v1.(string) + "b"}, nil)
			if err != nil {
				return nil, err
			}
			return v2.(string) + "c", nil
		}, root)

		r1, err := task.Switch(root, child, nil, nil)
		if err != nil || r1 != "a" {
			t.Fatalf("r1 = %v, %v, want a, nil", r1, err)
		}
		r2, err := task.Switch(root, child, []any{"X"}, nil)
		if err != nil || r2 != "Xb" {
			t.Fatalf("r2 = %v, %v, want Xb, nil", r2, err)
		}
		r3, err := task.Switch(root, child, []any{"Y"}, nil)
		if err != nil || r3 != "Ybc" {
			t.Fatalf("r3 = %v, %v, want Ybc, nil", r3, err)
		}
		if !child.Dead() {
			t.Fatalf("child should be Dead")
		}
	})
}

func TestThrowIntoSuspended(t *testing.T) {
	// Scenario 3: throwing into a suspended child surfaces at the child's
	// switch call site; if uncaught (the child just returns the error), it
	// surfaces back at root's Throw call.
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		myErr := errors.New("boom")
		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			_, err := task.Switch(self, root, nil, nil)
			return nil, err // uncaught: propagate whatever arrived
		}, root)

		if _, err := task.Switch(root, child, nil, nil); err != nil {
			t.Fatalf("priming switch: %v", err)
		}

		_, err := task.Throw(root, child, myErr)
		if !errors.Is(err, myErr) {
			t.Fatalf("Throw returned %v, want %v", err, myErr)
		}
		if !child.Dead() {
			t.Fatalf("child should be Dead after an uncaught throw")
		}
	})
}

func TestGrandchildFallsOffTheEnd(t *testing.T) {
	// Scenario 4: a grandchild created from inside child's own body (so its
	// structural parent is child, per "parent defaults to whoever is
	// current at creation") falls off the end and control returns to
	// child, which then relays the result up to root.
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			grandchild := task.Create(func(_ *task.Task, args []any, kwargs map[string]any) (any, error) {
				return 7, nil
			}, nil) // nil: defaults to self, the currently running tasklet

			r, err := task.Switch(self, grandchild, nil, nil)
			if err != nil {
				return nil, err
			}
			return task.Switch(self, root, []any{r}, nil)
		}, root)

		got, err := task.Switch(root, child, nil, nil)
		if err != nil {
			t.Fatalf("Switch: %v", err)
		}
		if got != 7 {
			t.Fatalf("got %v, want 7", got)
		}
	})
}

func TestCrossThreadRejection(t *testing.T) {
	// Scenario 5: a tasklet created on one registry can't be switched into
	// from another.
	root1 := freshCurrent(t)
	x := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
		return nil, nil
	}, root1)

	runOnGoroutine(t, func(t *testing.T) {
		root2 := task.Current()
		defer task.Forget()
		_, err := task.Switch(root2, x, nil, nil)
		if !errors.Is(err, task.ErrCrossRegistry) {
			t.Fatalf("Switch across registries returned %v, want ErrCrossRegistry", err)
		}
		if x.Dead() {
			t.Fatalf("x must be unaffected by the rejected cross-registry switch")
		}
	})
}

func TestSwitchArgShaping(t *testing.T) {
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		var observed []any
		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			observed = args
			return nil, nil
		}, root)

		// A single positional argument reaches the body as a one-element
		// args slice.
		if _, err := task.Switch(root, child, []any{"solo"}, nil); err != nil {
			t.Fatalf("Switch: %v", err)
		}
		if len(observed) != 1 || observed[0] != "solo" {
			t.Fatalf("observed = %v", observed)
		}
	})
}

func TestKwargsShaping(t *testing.T) {
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			return task.Switch(self, root, nil, map[string]any{"x": 1})
		}, root)

		got, err := task.Switch(root, child, nil, nil)
		if err != nil {
			t.Fatalf("Switch: %v", err)
		}
		m, ok := got.(map[string]any)
		if !ok || m["x"] != 1 {
			t.Fatalf("got %#v, want map[x:1]", got)
		}
	})
}

func TestArgsAndKwargsShaping(t *testing.T) {
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			return task.Switch(self, root, []any{1, 2}, map[string]any{"k": "v"})
		}, root)

		got, err := task.Switch(root, child, nil, nil)
		if err != nil {
			t.Fatalf("Switch: %v", err)
		}
		both, ok := got.(task.ArgsAndKwargs)
		if !ok {
			t.Fatalf("got %#v, want ArgsAndKwargs", got)
		}
		if len(both.Args) != 2 || both.Kwargs["k"] != "v" {
			t.Fatalf("got %#v", both)
		}
	})
}

func TestSelfSwitchIsNoOp(t *testing.T) {
	// R2.
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		var fired int
		root.Registry().SetTrace(func(event string, from, to *task.Task) {
			fired++
		})

		got, err := task.Switch(root, root, []any{"same"}, nil)
		if err != nil {
			t.Fatalf("self-switch: %v", err)
		}
		if got != "same" {
			t.Fatalf("got %v, want same", got)
		}
		if fired != 1 {
			t.Fatalf("fired %d trace events, want exactly 1", fired)
		}
	})
}

func TestReferenceDropKillsLoopingChild(t *testing.T) {
	// Scenario 6: a tasklet parked in an infinite switch loop is torn down
	// by throwing the exit signal when its last reference drops.
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		iterations := 0
		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			for {
				_, err := task.Switch(self, root, nil, nil)
				if err != nil {
					return nil, err
				}
				iterations++
			}
		}, root)

		if _, err := task.Switch(root, child, nil, nil); err != nil {
			t.Fatalf("priming switch: %v", err)
		}
		task.Teardown(child)
		if _, err := task.Switch(root, child, nil, nil); err != nil {
			t.Fatalf("switch to deliver exit signal: %v", err)
		}
		if !child.Dead() {
			t.Fatalf("child should be Dead after exit signal unwinds it")
		}
	})
}

func TestNeverEnteredTaskletIsNotInvoked(t *testing.T) {
	// B1.
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		invoked := false
		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			invoked = true
			return nil, nil
		}, root)

		task.Teardown(child)
		if invoked {
			t.Fatalf("body must not run for a never-entered tasklet")
		}
		if !child.Dead() {
			t.Fatalf("a torn-down never-entered tasklet should be Dead")
		}
		if child.Launched() {
			t.Fatalf("a never-entered tasklet must never launch its goroutine")
		}
	})
}

func TestCurrentLazyRoot(t *testing.T) {
	// §4.F: Current's lazily created root is immediately usable as a switch
	// target, with no prior Create call of its own.
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		if root == nil || root.Dead() {
			t.Fatalf("a freshly lazily-created root must be live, got %v", root)
		}

		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			return task.Switch(self, root, []any{"ok"}, nil)
		}, root)

		got, err := task.Switch(root, child, nil, nil)
		if err != nil {
			t.Fatalf("Switch into child: %v", err)
		}
		if got != "ok" {
			t.Fatalf("got %v, want ok", got)
		}

		// The lazily created root is also a valid target in its own right —
		// R2's self-switch no-op, not ErrArgument or ErrCrossRegistry.
		if _, err := task.Switch(root, root, nil, nil); err != nil {
			t.Fatalf("self-switch on the lazily created root: %v", err)
		}
	})
}

func TestSwitchToRegistryGone(t *testing.T) {
	// A registry closed by an explicit Forget on its root's own goroutine is
	// observable by a later Switch call still holding that root's *Task,
	// even though the root's *Task is itself still reachable (see DESIGN.md's
	// Registry.Closed() open question).
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()

		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			return task.Switch(self, root, nil, nil)
		}, root)

		if _, err := task.Switch(root, child, nil, nil); err != nil {
			t.Fatalf("priming switch: %v", err)
		}

		task.Forget()

		if _, err := task.Switch(root, child, nil, nil); !errors.Is(err, task.ErrRegistryGone) {
			t.Fatalf("Switch after Forget returned %v, want ErrRegistryGone", err)
		}
	})
}

func TestTeardownIdempotent(t *testing.T) {
	// Dropping every external reference to a Suspended tasklet tears it down
	// exactly once; a redundant Teardown call, whether before or after the
	// exit signal lands, must be a harmless no-op rather than corrupting the
	// registry's cleanup queue or double-killing the tasklet.
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		child := task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
			for {
				if _, err := task.Switch(self, root, nil, nil); err != nil {
					return nil, err
				}
			}
		}, root)

		if _, err := task.Switch(root, child, nil, nil); err != nil {
			t.Fatalf("priming switch: %v", err)
		}

		task.Teardown(child) // first drop: enqueues cleanup
		task.Teardown(child) // second, redundant drop: must not double-enqueue

		if _, err := task.Switch(root, child, nil, nil); err != nil {
			t.Fatalf("switch to deliver exit signal: %v", err)
		}
		if !child.Dead() {
			t.Fatalf("child should be Dead exactly once")
		}

		// A third Teardown after the tasklet is already Dead is also a
		// documented no-op (Teardown's own IsRoot/Dead guard).
		task.Teardown(child)
		if _, err := task.Switch(root, child, nil, nil); err != nil {
			t.Fatalf("switch after a post-mortem Teardown: %v", err)
		}
	})
}

func TestLifoEnterFifoExit(t *testing.T) {
	// B2: many tasklets entered LIFO, exited FIFO, all cleanly reaped.
	runOnGoroutine(t, func(t *testing.T) {
		root := task.Current()
		defer task.Forget()

		const n = 8
		children := make([]*task.Task, n)
		for i := range children {
			children[i] = task.Create(func(self *task.Task, args []any, kwargs map[string]any) (any, error) {
				for {
					if _, err := task.Switch(self, root, nil, nil); err != nil {
						return nil, err
					}
				}
			}, root)
		}
		for i := n - 1; i >= 0; i-- {
			if _, err := task.Switch(root, children[i], nil, nil); err != nil {
				t.Fatalf("entering child %d: %v", i, err)
			}
		}
		for i := 0; i < n; i++ {
			task.Teardown(children[i])
			if _, err := task.Switch(root, children[i], nil, nil); err != nil {
				t.Fatalf("exiting child %d: %v", i, err)
			}
			if !children[i].Dead() {
				t.Fatalf("child %d should be Dead", i)
			}
		}
	})
}
