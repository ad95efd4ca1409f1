// Package api
// Author: momentics@gmail.com
//
// Best-effort OS-thread CPU affinity for dispatcher/selector/timer threads.

package api

// Affinity pins the calling OS thread (after runtime.LockOSThread) to a
// logical CPU. Implementations are best-effort: a failure to pin is
// reported but never fatal to the caller's dispatch loop.
type Affinity interface {
	// Pin binds the current OS thread to cpuID. cpuID < 0 means "no
	// preference" and is a no-op.
	Pin(cpuID int) error

	// Unpin releases any binding made by Pin, letting the OS scheduler
	// migrate the thread freely again.
	Unpin() error

	// Current returns the most recently pinned CPU, or -1 if unpinned.
	Current() int
}
