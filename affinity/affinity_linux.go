//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux implementation using sched_setaffinity via golang.org/x/sys/unix.
// SchedSetaffinity with pid=0 targets the calling thread, which is what
// the source material's pthread_setaffinity_np(pthread_self(), ...)
// did; Go's equivalent of "calling thread" only holds if the caller is
// already runtime.LockOSThread'd, which every owned Dispatcher/Selector/
// Timer thread is.

package affinity

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func pinPlatform(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	return unix.SchedSetaffinity(0, &set)
}

// unpinPlatform releases a pin by allowing every CPU the runtime knows
// about, rather than reconstructing the process's original mask (which
// sched_getaffinity could give us, but the source material's affinity
// module doesn't offer an "unpin" at all — this is the Go port's own
// best-effort approximation of one).
func unpinPlatform() error {
	var set unix.CPUSet
	set.Zero()
	for i := 0; i < runtime.NumCPU(); i++ {
		set.Set(i)
	}
	return unix.SchedSetaffinity(0, &set)
}
