// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral best-effort CPU affinity for dispatcher/selector/
// timer owned threads (C9). Platform-specific pinning lives in
// affinity_linux.go / affinity_stub.go behind build tags, replacing the
// source material's cgo-based pthread_setaffinity_np with
// golang.org/x/sys/unix.SchedSetaffinity — no cgo, same mechanism.

package affinity

import "github.com/evreactor/core/api"

// Affinity implements api.Affinity. Construct it with New: a zero
// Affinity reports 0 from Current until Pin or Unpin is called.
type Affinity struct {
	current int
}

var _ api.Affinity = (*Affinity)(nil)

// New returns an unpinned Affinity.
func New() *Affinity {
	return &Affinity{current: -1}
}

// Pin binds the calling OS thread (must already hold
// runtime.LockOSThread for the duration it should stay pinned) to
// cpuID. cpuID < 0 is a no-op.
func (a *Affinity) Pin(cpuID int) error {
	if cpuID < 0 {
		return nil
	}
	if err := pinPlatform(cpuID); err != nil {
		return api.NewDispatchError(api.KindIO, "pin cpu", err)
	}
	a.current = cpuID
	return nil
}

// Unpin releases any binding made by Pin.
func (a *Affinity) Unpin() error {
	if err := unpinPlatform(); err != nil {
		return api.NewDispatchError(api.KindIO, "unpin cpu", err)
	}
	a.current = -1
	return nil
}

// Current returns the most recently pinned CPU, or -1 if unpinned.
func (a *Affinity) Current() int { return a.current }
