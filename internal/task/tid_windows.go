//go:build windows

package task

import "golang.org/x/sys/windows"

// currentOSThreadID returns the calling OS thread's id, for diagnostics
// only. See the unix build's comment in tid_unix.go for why this is never
// authoritative.
func currentOSThreadID() int64 {
	return int64(windows.GetCurrentThreadId())
}
