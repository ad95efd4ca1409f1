// File: reactor/poll_backend.go
// Author: momentics <momentics@gmail.com>
//
// Default PollBackend: a thin wrapper over unix.Poll. Used by Selector
// on every platform this module targets (Linux), per the source
// material's literal poll()-based design.

package reactor

import "golang.org/x/sys/unix"

// pollBackend implements PollBackend with unix.Poll.
type pollBackend struct{}

// NewPollBackend returns the default poll()-based backend. It owns no
// OS resources, so Close is a no-op.
func NewPollBackend() PollBackend {
	return &pollBackend{}
}

func (b *pollBackend) Wait(fds []PollFd, timeoutMs int) (int, error) {
	raw := make([]unix.PollFd, len(fds))
	for i, f := range fds {
		raw[i] = unix.PollFd{Fd: f.Fd, Events: f.Events}
	}

	n, err := unix.Poll(raw, timeoutMs)
	for i := range raw {
		fds[i].Revents = raw[i].Revents
	}
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (b *pollBackend) Close() error { return nil }
