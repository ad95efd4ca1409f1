// File: dispatcher/goid.go
// Author: momentics <momentics@gmail.com>
//
// goroutineID is the Go stand-in for the source material's pthread_self()
// based thread identity: Go exposes no stable goroutine handle, so
// IsDispatcherThread parses the numeric id out of a one-line runtime
// stack trace. Called from Attach (once per owned thread) and from
// IsDispatcherThread, which is not on any hot path (once per
// Send/Shutdown call), so the allocation is cheap relative to the
// blocking operation it guards.

package dispatcher

import (
	"runtime"
	"strconv"
)

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if len(b) > len(prefix) && string(b[:len(prefix)]) == prefix {
		b = b[len(prefix):]
	}
	i := 0
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	id, _ := strconv.ParseUint(string(b[:i]), 10, 64)
	return id
}
