//go:build linux

package task

import "golang.org/x/sys/unix"

// currentOSThreadID returns the calling OS thread's id, for diagnostics
// only (see Registry.osThreadID). Because Go goroutines can migrate between
// OS threads across any blocking call, this is never load-bearing for
// correctness — only the registry identity established in goid.go is.
func currentOSThreadID() int64 {
	return int64(unix.Gettid())
}
