// Package api
// Author: momentics
//
// Poll-event mask and the listener callbacks the Selector and Timer invoke.

package api

import "golang.org/x/sys/unix"

// PollMask mirrors the OS poll() convention bit-for-bit.
type PollMask int16

const (
	POLLIN   PollMask = unix.POLLIN
	POLLOUT  PollMask = unix.POLLOUT
	POLLERR  PollMask = unix.POLLERR
	POLLHUP  PollMask = unix.POLLHUP
	POLLNVAL PollMask = unix.POLLNVAL
	POLLPRI  PollMask = unix.POLLPRI
)

// alwaysDeliveredMask is the set of revents a SelectorListener must always
// receive even if it did not subscribe to them.
const alwaysDeliveredMask PollMask = POLLERR | POLLHUP | POLLNVAL

// AlwaysDelivered returns mask with the events every listener must
// unconditionally receive (POLLERR|POLLHUP|POLLNVAL) added to it.
func AlwaysDelivered(mask PollMask) PollMask {
	return mask | alwaysDeliveredMask
}

// SelectorListener receives file-descriptor readiness notifications on the
// Selector's own thread. Implementations must not block.
type SelectorListener interface {
	// ProcessFileEvents is called with the revents poll reported for fd,
	// unmodified. When several entries share fd, their masks are merged
	// into one poll slot, so revents may carry bits another entry
	// subscribed to. POLLERR|POLLHUP|POLLNVAL appear only when poll
	// reports them, whether or not the listener subscribed to them.
	ProcessFileEvents(fd uintptr, revents PollMask, cookie uintptr)
}

// TimerListener receives deadline notifications on the Timer's own thread.
// Implementations must not block.
type TimerListener interface {
	OnTimeout(cookie uintptr)
}
