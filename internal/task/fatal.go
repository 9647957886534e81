package task

import (
	"fmt"
	"os"
)

// FatalHandler is invoked for §7's FatalImpossible condition: the
// effective-target walk exhausted a dying tasklet's parent chain with no
// living ancestor able to receive its outcome. This can only happen if an
// invariant (I5: every parent chain terminates at a non-dead root) has
// already been violated elsewhere, so per §7 there is no recoverable return
// here — the default behavior is to write a diagnostic to stderr and
// terminate the process.
//
// internal/diag overrides this at import time with a colorized version of
// the same dump (see that package's init); the plain default here has no
// dependency on it so that internal/task never needs to import its own
// caller.
var FatalHandler = func(msg string) {
	fmt.Fprintln(os.Stderr, "tasklet: fatal:", msg)
	os.Exit(2)
}
