//go:build linux
// +build linux

// File: reactor/epoll_backend.go
// Author: momentics <momentics@gmail.com>
//
// Alternate PollBackend for larger fan-outs than the poll()-based
// default comfortably handles. Not wired into Selector by default —
// kept here as the documented swap point referenced in SPEC_FULL.md's
// Design Notes; a caller wanting it constructs one explicitly and
// passes it via selector.Config.Backend.

package reactor

import "golang.org/x/sys/unix"

type epollBackend struct {
	epfd int
}

// NewEpollBackend creates an epoll-backed PollBackend. Callers must
// Close it when done to release the epoll fd.
func NewEpollBackend() (PollBackend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollBackend{epfd: epfd}, nil
}

// Wait re-registers the full fd set on every call, trading some
// overhead for a Wait signature identical to the poll()-backed
// implementation — interest-set diffing is an optimization left for a
// future iteration once fan-out actually warrants the epoll backend.
func (b *epollBackend) Wait(fds []PollFd, timeoutMs int) (int, error) {
	for _, f := range fds {
		ev := unix.EpollEvent{Events: uint32(f.Events), Fd: f.Fd}
		_ = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, int(f.Fd), &ev)
	}
	defer func() {
		for _, f := range fds {
			_ = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, int(f.Fd), nil)
		}
	}()

	raw := make([]unix.EpollEvent, len(fds))
	n, err := unix.EpollWait(b.epfd, raw, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	byFd := make(map[int32]int, len(fds))
	for i, f := range fds {
		byFd[f.Fd] = i
	}
	for i := 0; i < n; i++ {
		if idx, ok := byFd[raw[i].Fd]; ok {
			fds[idx].Revents = int16(raw[i].Events)
		}
	}
	return n, nil
}

func (b *epollBackend) Close() error {
	return unix.Close(b.epfd)
}
