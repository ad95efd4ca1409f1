// File: dispatcher/dispatcher.go
// Author: momentics <momentics@gmail.com>
//
// Dispatcher is a single goroutine, locked to its own OS thread, owning
// a FIFO work queue that serially executes posted events. It is the
// core's C2 component; Selector embeds one and delegates to it.

package dispatcher

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/evreactor/core/api"
)

// State is the dispatcher's lifecycle stage. Transitions are monotone:
// Created -> Running -> Stopping -> Stopped.
type State int32

const (
	Created State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config carries a Dispatcher's construction-time dependencies. Only
// Name is a domain parameter; Logger/Metrics/Affinity/CPU are ambient
// and may be left zero.
type Config struct {
	Name     string
	Logger   api.Logger
	Metrics  api.Metrics
	Affinity api.Affinity
	// CPU is the logical CPU to pin the owned thread to, or -1 for no
	// preference. Zero is also treated as no preference, so CPU 0 cannot
	// be selected. Ignored unless Affinity is non-nil.
	CPU int
}

type workItem struct {
	event    api.Event
	target   any
	done     chan struct{}
	err      error
	shutdown bool
}

// Dispatcher is the C2 component: a FIFO event queue drained by one
// goroutine locked to its own OS thread.
type Dispatcher struct {
	name     string
	logger   api.Logger
	metrics  api.Metrics
	affinity api.Affinity
	cpu      int

	mu   sync.Mutex
	cond *sync.Cond
	q    *queue.Queue

	state   atomic.Int32
	ownerID atomic.Uint64

	currentEvent atomic.Uint64

	started chan struct{}
	stopped chan struct{}
}

var _ api.IEventDispatcher = (*Dispatcher)(nil)

// New constructs a standalone Dispatcher and starts its owned thread
// immediately, running the default blocking dispatch loop.
func New(cfg Config) *Dispatcher {
	d := newUnstarted(cfg)
	go d.runStandaloneLoop()
	<-d.started
	return d
}

// Embedded constructs a Dispatcher whose owned-thread loop is driven
// externally rather than by the default blocking loop. Selector uses
// this: its poll loop calls Attach once, then PinAffinity, DrainPending
// and Finish itself, replacing Dispatcher's own loop with a poll/drain
// cycle while reusing its queue, state machine and Post/Send/Remove*
// semantics unchanged.
func Embedded(cfg Config) *Dispatcher {
	return newUnstarted(cfg)
}

func newUnstarted(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = api.NopMetrics{}
	}
	if cfg.CPU == 0 {
		cfg.CPU = -1
	}
	d := &Dispatcher{
		name:     cfg.Name,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		affinity: cfg.Affinity,
		cpu:      cfg.CPU,
		q:        queue.New(),
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	d.currentEvent.Store(uint64(api.InvalidID))
	return d
}

// Name returns the dispatcher's debug name.
func (d *Dispatcher) Name() string { return d.name }

// State returns the dispatcher's current lifecycle stage.
func (d *Dispatcher) State() State { return State(d.state.Load()) }

// Logger returns the Logger this dispatcher was configured with, so an
// owning Selector/Timer can log through the same collaborator.
func (d *Dispatcher) Logger() api.Logger { return d.logger }

// Metrics returns the Metrics sink this dispatcher was configured with.
func (d *Dispatcher) Metrics() api.Metrics { return d.metrics }

// QueueDepth returns the number of entries currently queued, for debug
// probes.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.q.Length()
}

// Started returns the channel closed once the owned thread has called
// Attach and transitioned to Running.
func (d *Dispatcher) Started() <-chan struct{} { return d.started }

// Stopped returns the channel closed once the owned thread has fully
// exited (after Finish).
func (d *Dispatcher) Stopped() <-chan struct{} { return d.stopped }

// ShouldStop reports whether the owned thread should leave its loop
// (whichever shape that loop takes) and call Finish.
func (d *Dispatcher) ShouldStop() bool { return State(d.state.Load()) != Running }

// Attach records the calling goroutine as this dispatcher's owned
// thread and transitions it to Running. The caller must already hold
// runtime.LockOSThread for its own lifetime. Called exactly once, by
// whichever loop (Dispatcher's own, or an embedding Selector's) owns
// this dispatcher's thread.
func (d *Dispatcher) Attach() {
	d.ownerID.Store(goroutineID())
	d.state.Store(int32(Running))
	close(d.started)
}

// PinAffinity best-effort pins the calling OS thread per Config.
func (d *Dispatcher) PinAffinity() {
	if d.affinity != nil && d.cpu >= 0 {
		if err := d.affinity.Pin(d.cpu); err != nil {
			d.logger.Warn("affinity pin failed",
				api.F("component", "dispatcher"), api.F("name", d.name),
				api.F("cpu", d.cpu), api.F("error", err.Error()))
		}
	}
}

// DrainPending processes every currently queued entry without
// blocking, exactly as the default loop would for a non-empty queue.
// Used by Selector after each poll wakeup (§4.3 step 4).
func (d *Dispatcher) DrainPending() {
	for {
		item, ok := d.tryNextItem()
		if !ok {
			return
		}
		d.dispatchOne(item)
	}
}

// Finish drains any remaining queue entries without invoking handlers
// and transitions to Stopped. Exported wrapper of finish for Selector.
func (d *Dispatcher) Finish() { d.finish() }

func (d *Dispatcher) runStandaloneLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	d.Attach()
	d.PinAffinity()

	for {
		item, ok := d.nextItem()
		if !ok {
			break
		}
		d.dispatchOne(item)
	}
	d.finish()
}

func (d *Dispatcher) nextItem() (*workItem, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		if d.q.Length() > 0 {
			return d.q.Remove().(*workItem), true
		}
		if State(d.state.Load()) != Running {
			return nil, false
		}
		d.cond.Wait()
	}
}

func (d *Dispatcher) tryNextItem() (*workItem, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.q.Length() == 0 {
		return nil, false
	}
	return d.q.Remove().(*workItem), true
}

func (d *Dispatcher) dispatchOne(item *workItem) {
	if item.shutdown {
		d.state.Store(int32(Stopping))
		if item.done != nil {
			item.done <- struct{}{}
		}
		return
	}

	d.currentEvent.Store(uint64(item.event.ID()))

	func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("event handler panicked",
					api.F("component", "dispatcher"), api.F("name", d.name),
					api.F("event_id", uint64(item.event.ID())),
					api.F("panic", fmt.Sprintf("%v", r)),
					api.F("stack", string(debug.Stack())))
			}
		}()
		if receiver, ok := item.target.(api.Receiver); ok {
			receiver.HandleEvent(item.event)
		}
	}()

	if item.done != nil {
		item.done <- struct{}{}
	}
	item.event.Release()
	d.currentEvent.Store(uint64(api.InvalidID))
}

// finish drains any remaining queue entries without invoking handlers
// and transitions to Stopped, all under the same lock so a racing
// Shutdown call either joins the drain or observes Stopped and skips
// enqueueing entirely (see postShutdownAndWait).
func (d *Dispatcher) finish() {
	d.mu.Lock()
	for d.q.Length() > 0 {
		item := d.q.Remove().(*workItem)
		if item.shutdown {
			if item.done != nil {
				item.done <- struct{}{}
			}
			continue
		}
		item.event.Release()
		if item.done != nil {
			if item.err == nil {
				item.err = api.ErrUnroutable
			}
			item.done <- struct{}{}
		}
	}
	d.state.Store(int32(Stopped))
	d.mu.Unlock()
	close(d.stopped)
}

func (d *Dispatcher) enqueue(item *workItem) {
	d.mu.Lock()
	d.q.Add(item)
	d.mu.Unlock()
	d.cond.Signal()
}

// Post enqueues event for target without blocking.
func (d *Dispatcher) Post(event api.Event, target any) error {
	if event == nil {
		return api.NewDispatchError(api.KindInvalid, "nil event", nil)
	}
	if st := State(d.state.Load()); st == Stopping || st == Stopped {
		return api.ErrUnroutable
	}
	event.Retain()
	d.enqueue(&workItem{event: event, target: target})
	d.metrics.IncPosts()
	return nil
}

// Send enqueues event for target and blocks until its handler returns.
func (d *Dispatcher) Send(event api.Event, target any) error {
	if event == nil {
		return api.NewDispatchError(api.KindInvalid, "nil event", nil)
	}
	if d.IsDispatcherThread() {
		return api.ErrWouldDeadlock
	}
	if st := State(d.state.Load()); st == Stopping || st == Stopped {
		return api.ErrUnroutable
	}
	event.Retain()
	item := &workItem{event: event, target: target, done: make(chan struct{}, 1)}
	d.enqueue(item)
	d.metrics.IncSends()
	<-item.done
	return item.err
}

// RemoveEvents removes queued entries matching eventID (or all, if
// eventID == InvalidID) and target (or any, if target == nil).
func (d *Dispatcher) RemoveEvents(eventID api.Id, target any) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.q.Length()
	kept := make([]*workItem, 0, n)
	removed := 0
	for i := 0; i < n; i++ {
		item := d.q.Remove().(*workItem)
		if item.shutdown {
			kept = append(kept, item)
			continue
		}
		matchID := eventID == api.InvalidID || item.event.ID() == eventID
		matchTarget := target == nil || item.target == target
		if matchID && matchTarget {
			item.event.Release()
			if item.done != nil {
				item.err = api.ErrUnroutable
				item.done <- struct{}{}
			}
			removed++
			continue
		}
		kept = append(kept, item)
	}
	for _, item := range kept {
		d.q.Add(item)
	}
	d.metrics.IncRemoved(removed)
	return removed
}

// RemoveByReceiver removes entries whose target equals receiver.
func (d *Dispatcher) RemoveByReceiver(receiver any) int {
	return d.RemoveEvents(api.InvalidID, receiver)
}

// IsDispatcherThread reports whether the calling goroutine is this
// dispatcher's own owned thread.
func (d *Dispatcher) IsDispatcherThread() bool {
	return d.ownerID.Load() == goroutineID()
}

func (d *Dispatcher) postShutdownAndWait() {
	d.mu.Lock()
	if State(d.state.Load()) == Stopped {
		d.mu.Unlock()
		return
	}
	item := &workItem{shutdown: true, done: make(chan struct{}, 1)}
	d.q.Add(item)
	d.mu.Unlock()
	d.cond.Signal()
	<-item.done
}

// Shutdown stops the dispatch loop. Idempotent. From any other
// goroutine it blocks until the owned thread has exited; from the
// dispatcher's own thread it sets Stopping and returns immediately.
func (d *Dispatcher) Shutdown() error {
	if d.IsDispatcherThread() {
		d.mu.Lock()
		if State(d.state.Load()) == Running {
			d.state.Store(int32(Stopping))
		}
		d.mu.Unlock()
		d.cond.Signal()
		return nil
	}
	d.postShutdownAndWait()
	<-d.stopped
	return nil
}
