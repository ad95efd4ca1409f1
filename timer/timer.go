// File: timer/timer.go
// Author: momentics <momentics@gmail.com>
//
// Timer is a tick-driven scheduler that posts events to a dispatcher or
// invokes listener callbacks directly, one-shot or periodically, with
// carry_ms drift correction so long-run periodic frequency matches the
// requested period even when it isn't a multiple of the tick.

package timer

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/evreactor/core/api"
)

type node struct {
	id       uint64
	event    api.Event
	disp     api.IEventDispatcher
	target   any
	listener api.TimerListener
	cookie   uintptr
	fireTick uint64
	repeatMs uint32
	carryMs  int64 // <= 0: ms the last ceil-rounded advance overshot
	periodic bool
}

// Config carries a Timer's construction-time ambient dependencies.
type Config struct {
	Name     string
	Logger   api.Logger
	Metrics  api.Metrics
	Affinity api.Affinity
	CPU      int
}

// Timer is the C4 component.
type Timer struct {
	name     string
	logger   api.Logger
	metrics  api.Metrics
	affinity api.Affinity
	cpu      int

	tickMs    int
	stoppable bool

	mu      sync.Mutex
	entries []*node
	ticks   uint64
	nextID  uint64

	running atomic.Bool
	ownerID atomic.Uint64
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// TimerHandle cancels a pending AddTimer/AddPeriodicTimer registration.
type TimerHandle struct {
	id uint64
	t  *Timer
}

var _ api.Cancelable = TimerHandle{}

// Cancel removes the pending callback. Returns ErrNotFound if it has
// already fired (and, for one-shot entries, already been removed).
func (h TimerHandle) Cancel() error {
	return h.t.removeByID(h.id)
}

// NewTimer constructs a Timer and starts its tick thread immediately.
func NewTimer(tickMs int, stoppable bool, cfg Config) *Timer {
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = api.NopMetrics{}
	}
	if cfg.CPU == 0 {
		cfg.CPU = -1
	}
	t := &Timer{
		name:      cfg.Name,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		affinity:  cfg.Affinity,
		cpu:       cfg.CPU,
		tickMs:    tickMs,
		stoppable: stoppable,
	}
	_ = t.Start()
	return t
}

// Start is a no-op if the timer is already running.
func (t *Timer) Start() error {
	if t.running.Load() {
		return nil
	}
	t.mu.Lock()
	if t.running.Load() {
		t.mu.Unlock()
		return nil
	}
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	started := make(chan struct{})
	t.running.Store(true)
	t.mu.Unlock()

	go t.loop(started)
	<-started
	return nil
}

// Stop joins the tick thread and clears all entries, releasing their
// event refcounts without firing. A no-op if the timer was constructed
// with stoppable=false.
func (t *Timer) Stop() error {
	if !t.stoppable {
		return nil
	}
	if !t.running.Load() {
		return nil
	}
	close(t.stopCh)
	<-t.doneCh

	t.mu.Lock()
	entries := t.entries
	t.entries = nil
	t.mu.Unlock()
	for _, n := range entries {
		if n.event != nil {
			n.event.Release()
		}
	}
	return nil
}

func (t *Timer) loop(started chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	t.ownerID.Store(goroutineID())
	if t.affinity != nil && t.cpu >= 0 {
		if err := t.affinity.Pin(t.cpu); err != nil {
			t.logger.Warn("affinity pin failed",
				api.F("component", "timer"), api.F("name", t.name),
				api.F("cpu", t.cpu), api.F("error", err.Error()))
		}
	}
	close(started)

	start := time.Now()
	tick := time.Duration(t.tickMs) * time.Millisecond

	for {
		t.mu.Lock()
		next := t.ticks + 1
		t.mu.Unlock()

		deadline := start.Add(tick * time.Duration(next))
		sleepFor := time.Until(deadline)
		if sleepFor > 0 {
			timer := time.NewTimer(sleepFor)
			select {
			case <-timer.C:
			case <-t.stopCh:
				timer.Stop()
				t.running.Store(false)
				close(t.doneCh)
				return
			}
		} else {
			select {
			case <-t.stopCh:
				t.running.Store(false)
				close(t.doneCh)
				return
			default:
			}
		}

		t.fireDue()
	}
}

func (t *Timer) fireDue() {
	t.mu.Lock()
	t.ticks++
	var due []*node
	kept := make([]*node, 0, len(t.entries))
	for _, n := range t.entries {
		if n.fireTick <= t.ticks {
			due = append(due, n)
		} else {
			kept = append(kept, n)
		}
	}
	for _, n := range due {
		if n.periodic {
			tick := int64(t.tickMs)
			if tick <= 0 {
				tick = 1
			}
			total := int64(n.repeatMs) + n.carryMs
			advance := int64(1)
			if total > tick {
				advance = (total + tick - 1) / tick
			}
			n.carryMs = total - advance*tick
			if n.carryMs < -tick {
				n.carryMs = -tick
			}
			n.fireTick = t.ticks + uint64(advance)
			kept = append(kept, n)
		}
	}
	t.entries = kept
	t.mu.Unlock()

	for _, n := range due {
		t.fireOne(n)
		if !n.periodic && n.event != nil {
			n.event.Release()
		}
	}
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return (a + b - 1) / b
}

func (t *Timer) fireOne(n *node) {
	t.metrics.IncTimerFires()
	if n.listener != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error("timer listener panicked",
						api.F("component", "timer"), api.F("cookie", uint64(n.cookie)),
						api.F("panic", r))
				}
			}()
			n.listener.OnTimeout(n.cookie)
		}()
		return
	}
	if n.event != nil && n.disp != nil {
		if err := n.disp.Post(n.event, n.target); err != nil {
			t.logger.Warn("timer event post failed",
				api.F("component", "timer"), api.F("error", err.Error()))
		}
	}
}

func (t *Timer) nextFireTick(delayMs uint32) uint64 {
	return t.ticks + ceilDiv(uint64(delayMs), uint64(t.tickMs))
}

// SendTimedEvent posts event to dispatcher (targeting target) once,
// delayMs from now.
func (t *Timer) SendTimedEvent(event api.Event, dispatcher api.IEventDispatcher, target any, delayMs uint32) error {
	if event == nil || dispatcher == nil {
		return api.NewDispatchError(api.KindInvalid, "nil event or dispatcher", nil)
	}
	event.Retain()
	t.mu.Lock()
	n := &node{id: t.allocID(), event: event, disp: dispatcher, target: target, fireTick: t.nextFireTick(delayMs)}
	t.entries = append(t.entries, n)
	t.mu.Unlock()
	return nil
}

// SendPeriodicEvent posts event to dispatcher (targeting target)
// repeatedly, every periodMs.
func (t *Timer) SendPeriodicEvent(event api.Event, dispatcher api.IEventDispatcher, target any, periodMs uint32) error {
	if event == nil || dispatcher == nil {
		return api.NewDispatchError(api.KindInvalid, "nil event or dispatcher", nil)
	}
	event.Retain()
	t.mu.Lock()
	n := &node{id: t.allocID(), event: event, disp: dispatcher, target: target, fireTick: t.nextFireTick(periodMs), repeatMs: periodMs, periodic: true}
	t.entries = append(t.entries, n)
	t.mu.Unlock()
	return nil
}

// AddTimer registers a one-shot callback, invoked on the timer's own
// thread delayMs from now.
func (t *Timer) AddTimer(listener api.TimerListener, delayMs uint32, cookie uintptr) (TimerHandle, error) {
	if listener == nil {
		return TimerHandle{}, api.NewDispatchError(api.KindInvalid, "nil listener", nil)
	}
	t.mu.Lock()
	id := t.allocID()
	n := &node{id: id, listener: listener, cookie: cookie, fireTick: t.nextFireTick(delayMs)}
	t.entries = append(t.entries, n)
	t.mu.Unlock()
	return TimerHandle{id: id, t: t}, nil
}

// AddPeriodicTimer registers a repeating callback, invoked on the
// timer's own thread every periodMs.
func (t *Timer) AddPeriodicTimer(listener api.TimerListener, periodMs uint32, cookie uintptr) (TimerHandle, error) {
	if listener == nil {
		return TimerHandle{}, api.NewDispatchError(api.KindInvalid, "nil listener", nil)
	}
	t.mu.Lock()
	id := t.allocID()
	n := &node{id: id, listener: listener, cookie: cookie, fireTick: t.nextFireTick(periodMs), repeatMs: periodMs, periodic: true}
	t.entries = append(t.entries, n)
	t.mu.Unlock()
	return TimerHandle{id: id, t: t}, nil
}

// IsTimerThread reports whether the calling goroutine is this timer's
// own tick thread; exposed for debug probes and tests.
func (t *Timer) IsTimerThread() bool {
	return t.ownerID.Load() == goroutineID()
}

// EntryCount returns the number of pending nodes, for debug probes.
func (t *Timer) EntryCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Timer) allocID() uint64 {
	t.nextID++
	return t.nextID
}

func (t *Timer) removeByID(id uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, n := range t.entries {
		if n.id == id {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			if n.event != nil {
				n.event.Release()
			}
			t.metrics.IncRemoved(1)
			return nil
		}
	}
	return api.ErrNotFound
}

// RemoveTimedEvent removes the pending node posting eventID to
// dispatcher (or any dispatcher, if dispatcher is nil), if still
// present.
func (t *Timer) RemoveTimedEvent(eventID api.Id, dispatcher api.IEventDispatcher) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, n := range t.entries {
		if n.event != nil && (dispatcher == nil || n.disp == dispatcher) && (eventID == api.InvalidID || n.event.ID() == eventID) {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			n.event.Release()
			t.metrics.IncRemoved(1)
			return true
		}
	}
	return false
}

// RemoveTimedEventByEvent removes the pending node wrapping event, if
// still present.
func (t *Timer) RemoveTimedEventByEvent(event api.Event) bool {
	if event == nil {
		return false
	}
	return t.RemoveTimedEvent(event.ID(), nil)
}

// RemoveAgentsByReceiver removes every pending node whose target
// equals receiver (event-typed nodes posting to dispatcher) or whose
// listener equals receiver (listener-typed nodes, dispatcher ignored).
// Returns the count removed.
func (t *Timer) RemoveAgentsByReceiver(receiver any, dispatcher api.IEventDispatcher) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.entries[:0:0]
	removed := 0
	for _, n := range t.entries {
		match := false
		if n.listener != nil {
			if l, ok := receiver.(api.TimerListener); ok && l == n.listener {
				match = true
			}
		} else if n.event != nil && n.target == receiver && (dispatcher == nil || n.disp == dispatcher) {
			match = true
		}
		if match {
			if n.event != nil {
				n.event.Release()
			}
			removed++
			continue
		}
		kept = append(kept, n)
	}
	t.entries = kept
	t.metrics.IncRemoved(removed)
	return removed
}
