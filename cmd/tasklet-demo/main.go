// Command tasklet-demo runs a scripted sequence of tasklet operations
// described by a YAML file and prints what happened at each step. It is a
// manual-testing aid, not part of the library's public API — the library
// itself has no configuration or persisted state to load (§6).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tasklet-go/tasklet"
)

func main() {
	path := flag.String("script", "", "path to a YAML script (see testdata/*.yaml)")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "tasklet-demo: -script is required")
		os.Exit(1)
	}

	script, err := LoadScript(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(script); err != nil {
		fmt.Fprintln(os.Stderr, "tasklet-demo:", err)
		os.Exit(1)
	}
}

// run executes script against a single tree of tasklets rooted at the
// calling goroutine's root tasklet, printing a line per step.
func run(script *Script) error {
	if script.Name != "" {
		fmt.Println("script:", script.Name)
	}

	named := map[string]*tasklet.Tasklet{}

	for i, step := range script.Steps {
		switch step.Op {
		case "create":
			parent := named[step.Parent] // nil is fine: defaults to current
			message := step.Message
			body := func(self *tasklet.Tasklet, args []any, kwargs map[string]any) (any, error) {
				for {
					fmt.Printf("%s: received %v\n", step.Tasklet, args)
					reply, err := self.Parent().Switch(message)
					if err != nil {
						return nil, err
					}
					args = []any{reply}
				}
			}
			named[step.Tasklet] = tasklet.Create(body, parent)
			fmt.Printf("step %d: created %s\n", i, step.Tasklet)

		case "switch":
			tk, ok := named[step.Tasklet]
			if !ok {
				return fmt.Errorf("step %d: unknown tasklet %q", i, step.Tasklet)
			}
			result, err := tk.Switch(step.Message)
			if err != nil {
				fmt.Printf("step %d: switch to %s errored: %v\n", i, step.Tasklet, err)
				continue
			}
			fmt.Printf("step %d: switch to %s returned %v\n", i, step.Tasklet, result)

		case "throw":
			tk, ok := named[step.Tasklet]
			if !ok {
				return fmt.Errorf("step %d: unknown tasklet %q", i, step.Tasklet)
			}
			result, err := tk.Throw(fmt.Errorf("%s", step.Reason))
			fmt.Printf("step %d: throw into %s returned %v, %v\n", i, step.Tasklet, result, err)

		default:
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
	}
	return nil
}
