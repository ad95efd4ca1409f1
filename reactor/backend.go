// File: reactor/backend.go
// Author: momentics <momentics@gmail.com>
//
// PollBackend is the thin seam between Selector and the OS readiness
// mechanism. Kept deliberately narrow so a poll()-backed implementation
// and an epoll()-backed one can coexist without Selector's public API
// ever mentioning either.

package reactor

// PollFd mirrors unix.PollFd's three fields without requiring callers
// outside this package to import golang.org/x/sys/unix directly.
type PollFd struct {
	Fd      int32
	Events  int16
	Revents int16
}

// PollBackend blocks on a set of descriptors and reports which ones
// became ready. Implementations are not safe for concurrent calls to
// Wait; the Selector only ever calls Wait from its own owned thread.
type PollBackend interface {
	// Wait blocks until at least one descriptor in fds is ready, or
	// indefinitely if timeoutMs < 0. It mutates fds[i].Revents in
	// place and returns the number of descriptors with nonzero
	// Revents.
	Wait(fds []PollFd, timeoutMs int) (int, error)

	// Close releases any OS resources owned by the backend (e.g. an
	// epoll fd). The default poll()-backed implementation owns
	// nothing and treats this as a no-op.
	Close() error
}
