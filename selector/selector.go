// File: selector/selector.go
// Author: momentics <momentics@gmail.com>
//
// Selector is a Dispatcher (composition + delegation, per the source
// material's "Selector IS-A Dispatcher") whose owned thread runs a
// poll loop over registered file descriptors instead of the plain
// blocking dispatch loop, draining the embedded Dispatcher's work
// queue after every wakeup.

package selector

import (
	"runtime"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/evreactor/core/api"
	"github.com/evreactor/core/dispatcher"
	"github.com/evreactor/core/reactor"
)

// MaxPollFds is the compile-time cap on registered listener entries
// plus the wake pipe. Exceeding it is an Overflow, fatal by policy
// (see §7 propagation policy).
const MaxPollFds = 64

const (
	pipeReader = 0
	pipeWriter = 1
)

// ListenerEntry is one registered (fd, mask, listener, cookie) binding.
// Exported so debug probes and RemoveListener callers can enumerate it.
type ListenerEntry struct {
	Fd       uintptr
	Mask     api.PollMask
	Listener api.SelectorListener
	Cookie   uintptr
}

// Config carries a Selector's construction-time dependencies.
type Config struct {
	Name     string
	Logger   api.Logger
	Metrics  api.Metrics
	Affinity api.Affinity
	CPU      int
	// Backend overrides the poll mechanism; nil uses the default
	// poll()-based reactor.PollBackend.
	Backend reactor.PollBackend
}

// Selector embeds a Dispatcher and adds fd readiness multiplexing.
type Selector struct {
	*dispatcher.Dispatcher

	backend reactor.PollBackend
	onFatal func(error)

	mu            sync.Mutex
	listeners     []ListenerEntry
	updateNeeded  bool
	wakeR, wakeW  int
}

var _ api.IEventDispatcher = (*Selector)(nil)

// New constructs a Selector and starts its owned poll-loop thread
// immediately.
func New(cfg Config) (*Selector, error) {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, api.NewIOError("create wake pipe", int(errno(err)), err)
	}

	backend := cfg.Backend
	if backend == nil {
		backend = reactor.NewPollBackend()
	}

	s := &Selector{
		Dispatcher: dispatcher.Embedded(dispatcher.Config{
			Name:     cfg.Name,
			Logger:   cfg.Logger,
			Metrics:  cfg.Metrics,
			Affinity: cfg.Affinity,
			CPU:      cfg.CPU,
		}),
		backend:      backend,
		wakeR:        fds[pipeReader],
		wakeW:        fds[pipeWriter],
		updateNeeded: true,
	}
	s.onFatal = s.defaultFatal

	go s.pollLoop()
	<-s.Dispatcher.Started()
	return s, nil
}

func errno(err error) int {
	if e, ok := err.(unix.Errno); ok {
		return int(e)
	}
	return -1
}

func (s *Selector) defaultFatal(err error) {
	s.Dispatcher.Logger().Error("selector fatal overflow",
		api.F("component", "selector"), api.F("name", s.Dispatcher.Name()),
		api.F("error", err.Error()))
	fatalExit()
}

// AddListener registers listener for fd's readiness matching mask.
// Multiple entries may share an fd; listeners always additionally
// receive POLLERR|POLLHUP|POLLNVAL.
func (s *Selector) AddListener(fd uintptr, mask api.PollMask, listener api.SelectorListener, cookie uintptr) error {
	if listener == nil {
		return api.NewDispatchError(api.KindInvalid, "nil listener", nil)
	}
	s.mu.Lock()
	if len(s.listeners)+1 > MaxPollFds-1 {
		s.mu.Unlock()
		s.Dispatcher.Metrics().IncOverflows()
		err := api.ErrOverflow
		s.onFatal(err)
		return err
	}
	s.listeners = append(s.listeners, ListenerEntry{Fd: fd, Mask: api.AlwaysDelivered(mask), Listener: listener, Cookie: cookie})
	s.updateNeeded = true
	s.mu.Unlock()
	s.wake()
	return nil
}

// Post enqueues event for target like Dispatcher.Post, then wakes the
// poll loop so the event is dispatched without waiting for fd readiness.
func (s *Selector) Post(event api.Event, target any) error {
	if err := s.Dispatcher.Post(event, target); err != nil {
		return err
	}
	s.wake()
	return nil
}

// RemoveListener removes every entry matching (fd, listener).
func (s *Selector) RemoveListener(fd uintptr, listener api.SelectorListener) error {
	s.mu.Lock()
	kept := s.listeners[:0:0]
	found := false
	for _, e := range s.listeners {
		if e.Fd == fd && e.Listener == listener {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	s.listeners = kept
	s.updateNeeded = true
	s.mu.Unlock()
	s.wake()
	if !found {
		return api.ErrNotFound
	}
	return nil
}

// Listeners returns a snapshot of currently registered entries, for
// debug probes and round-trip tests.
func (s *Selector) Listeners() []ListenerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ListenerEntry, len(s.listeners))
	copy(out, s.listeners)
	return out
}

// wake writes one byte to the wake pipe, interrupting a blocked poll.
func (s *Selector) wake() {
	var b [1]byte
	_, _ = unix.Write(s.wakeW, b[:])
}

func (s *Selector) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(s.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (s *Selector) pollLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.Dispatcher.Attach()
	s.Dispatcher.PinAffinity()

	for {
		fds := s.buildPollFds()

		n, err := s.backend.Wait(fds, -1)
		if err != nil {
			s.Dispatcher.Logger().Warn("poll wait error",
				api.F("component", "selector"), api.F("error", err.Error()))
		}
		if n > 0 {
			s.Dispatcher.Metrics().IncPollWakeups()
			s.dispatchReadiness(fds)
		}

		s.Dispatcher.DrainPending()

		if s.Dispatcher.ShouldStop() {
			break
		}
	}

	_ = s.backend.Close()
	_ = unix.Close(s.wakeR)
	_ = unix.Close(s.wakeW)
	s.Dispatcher.Finish()
}

// buildPollFds emits one pollfd slot per distinct fd, merging the
// subscribed masks of every ListenerEntry that shares it. Multiple
// entries on one fd must still produce exactly one poll slot, or
// dispatchReadiness would invoke their listeners more than once per
// actual readiness event.
func (s *Selector) buildPollFds() []reactor.PollFd {
	s.mu.Lock()
	defer s.mu.Unlock()

	fds := make([]reactor.PollFd, 0, len(s.listeners)+1)
	index := make(map[uintptr]int, len(s.listeners)+1)

	fds = append(fds, reactor.PollFd{Fd: int32(s.wakeR), Events: int16(api.POLLIN)})
	index[uintptr(s.wakeR)] = 0

	for _, e := range s.listeners {
		if i, ok := index[e.Fd]; ok {
			fds[i].Events |= int16(e.Mask)
			continue
		}
		index[e.Fd] = len(fds)
		fds = append(fds, reactor.PollFd{Fd: int32(e.Fd), Events: int16(e.Mask)})
	}
	s.updateNeeded = false
	return fds
}

// dispatchReadiness delivers readiness to matching listeners. A
// snapshot of matching entries is taken per fd at the top of this
// pass, so a listener that mutates the registration list mid-callback
// only affects the next poll iteration (§4.3 re-entrancy).
func (s *Selector) dispatchReadiness(fds []reactor.PollFd) {
	for _, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		if int(pfd.Fd) == s.wakeR {
			s.drainWake()
			continue
		}
		s.deliverFd(uintptr(pfd.Fd), api.PollMask(pfd.Revents))
	}
}

func (s *Selector) deliverFd(fd uintptr, revents api.PollMask) {
	s.mu.Lock()
	matches := make([]ListenerEntry, 0, 1)
	for _, e := range s.listeners {
		if e.Fd == fd {
			matches = append(matches, e)
		}
	}
	s.mu.Unlock()

	for _, e := range matches {
		func(e ListenerEntry) {
			defer func() {
				if r := recover(); r != nil {
					s.Dispatcher.Logger().Error("listener panicked",
						api.F("component", "selector"), api.F("fd", int(e.Fd)),
						api.F("panic", r))
				}
			}()
			e.Listener.ProcessFileEvents(e.Fd, revents, e.Cookie)
		}(e)
	}
}

// Shutdown posts the selector-shutdown event and waits for the poll
// loop thread to exit, waking it immediately rather than waiting for
// the next fd readiness or the indefinite poll timeout.
func (s *Selector) Shutdown() error {
	if s.Dispatcher.IsDispatcherThread() {
		return s.Dispatcher.Shutdown()
	}
	done := make(chan error, 1)
	go func() { done <- s.Dispatcher.Shutdown() }()
	s.wake()
	return <-done
}
