// File: api/event.go
// Package api defines core event types for evcore.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "sync/atomic"

// Id is the stable, opaque identity of an Event. Unlike the source material's
// address-like identity, Go offers no stable object address under the garbage
// collector, so Id is handed out from a process-wide monotonic counter at
// Event construction (see NewEvent).
type Id uint64

// InvalidID is the sentinel identity meaning "no event" / "match any".
const InvalidID Id = 0

var idCounter atomic.Uint64

// NextId allocates a fresh, never-reused identity.
func NextId() Id {
	return Id(idCounter.Add(1))
}

// Event is a reference-counted unit of work with a stable identity.
// Concrete payload shapes are defined by callers; the core only needs
// ID/Retain/Release to manage lifetime across queues and timers.
type Event interface {
	// ID returns the stable identity of this event.
	ID() Id

	// Retain increments the reference count. Every post of an event into
	// a dispatcher queue or timer must call Retain.
	Retain()

	// Release decrements the reference count, running the release hook
	// (if any) when it reaches zero.
	Release()
}

// BaseEvent is the reference implementation of Event; callers embed it or
// use NewEvent directly when no extra behavior is required.
type BaseEvent struct {
	id        Id
	refcount  atomic.Int32
	Payload   any
	onRelease func(*BaseEvent)
}

// NewEvent allocates an Event with refcount=1 and the given payload.
// onRelease, if non-nil, runs exactly once when the refcount reaches zero.
func NewEvent(payload any, onRelease func(*BaseEvent)) *BaseEvent {
	e := &BaseEvent{
		id:        NextId(),
		Payload:   payload,
		onRelease: onRelease,
	}
	e.refcount.Store(1)
	return e
}

// ID returns the stable identity of the event.
func (e *BaseEvent) ID() Id { return e.id }

// Retain increments the reference count.
func (e *BaseEvent) Retain() {
	e.refcount.Add(1)
}

// Release decrements the reference count; at zero it invokes onRelease once.
func (e *BaseEvent) Release() {
	if e.refcount.Add(-1) == 0 && e.onRelease != nil {
		e.onRelease(e)
	}
}

// RefCount reports the current reference count; exported for tests that
// verify refcount conservation (retain/release symmetry).
func (e *BaseEvent) RefCount() int32 {
	return e.refcount.Load()
}
