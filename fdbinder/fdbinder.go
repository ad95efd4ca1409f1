// File: fdbinder/fdbinder.go
// Author: momentics <momentics@gmail.com>
//
// FdBinder is a thin adapter binding a raw file descriptor to a
// Selector with a listener and readiness mask, plus Read/Write/Close
// delegating to golang.org/x/sys/unix with errno mapped to the core's
// DispatchError taxonomy.

package fdbinder

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/evreactor/core/api"
)

// Selector is the narrow slice of *selector.Selector that FdBinder
// needs; kept as a local interface so fdbinder never imports selector
// and there is no import cycle between the two leaf packages.
type Selector interface {
	AddListener(fd uintptr, mask api.PollMask, listener api.SelectorListener, cookie uintptr) error
	RemoveListener(fd uintptr, listener api.SelectorListener) error
}

// FdBinder binds one fd's lifecycle (read/write/close) to an optional
// Selector registration.
type FdBinder struct {
	fd uintptr

	mu       sync.Mutex
	selector Selector
	listener api.SelectorListener
	closed   bool
}

// New wraps an already-open descriptor. Ownership of fd transfers to
// the FdBinder: Close closes it.
func New(fd uintptr) *FdBinder {
	return &FdBinder{fd: fd}
}

// Fd returns the bound descriptor.
func (b *FdBinder) Fd() uintptr { return b.fd }

// Read delegates to unix.Read, mapping a negative-errno result to a
// KindIO DispatchError.
func (b *FdBinder) Read(buf []byte) (int, error) {
	n, err := unix.Read(int(b.fd), buf)
	if err != nil {
		return n, api.NewIOError("read", errnoOf(err), err)
	}
	return n, nil
}

// Write delegates to unix.Write, mapping errors to KindIO.
func (b *FdBinder) Write(buf []byte) (int, error) {
	n, err := unix.Write(int(b.fd), buf)
	if err != nil {
		return n, api.NewIOError("write", errnoOf(err), err)
	}
	return n, nil
}

// Close deregisters from any bound Selector and closes the descriptor.
func (b *FdBinder) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	sel, l := b.selector, b.listener
	b.selector, b.listener = nil, nil
	b.mu.Unlock()

	if sel != nil && l != nil {
		_ = sel.RemoveListener(b.fd, l)
	}

	if err := unix.Close(int(b.fd)); err != nil {
		return api.NewIOError("close", errnoOf(err), err)
	}
	return nil
}

// SetSelector attaches listener to selector for this fd with mask
// (defaulting to POLLIN when zero), detaching from any prior selector
// first.
func (b *FdBinder) SetSelector(listener api.SelectorListener, selector Selector, mask api.PollMask) error {
	if mask == 0 {
		mask = api.POLLIN
	}

	b.mu.Lock()
	prevSel, prevListener := b.selector, b.listener
	b.mu.Unlock()

	if prevSel != nil && prevListener != nil {
		_ = prevSel.RemoveListener(b.fd, prevListener)
	}

	if selector == nil {
		b.mu.Lock()
		b.selector, b.listener = nil, nil
		b.mu.Unlock()
		return nil
	}

	if err := selector.AddListener(b.fd, mask, listener, b.fd); err != nil {
		return err
	}

	b.mu.Lock()
	b.selector, b.listener = selector, listener
	b.mu.Unlock()
	return nil
}

func errnoOf(err error) int {
	if e, ok := err.(unix.Errno); ok {
		return int(e)
	}
	return -1
}
