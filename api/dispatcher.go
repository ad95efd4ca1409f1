// File: api/dispatcher.go (formerly reactor.go)
// Author: momentics <momentics@gmail.com>
//
// IEventDispatcher is the capability set shared by Dispatcher and Selector.
// Polymorphism across the dispatcher family is expressed through this
// interface rather than inheritance: Selector embeds a Dispatcher and
// forwards these methods.

package api

// IEventDispatcher is satisfied by both *dispatcher.Dispatcher and
// *selector.Selector.
type IEventDispatcher interface {
	// Post enqueues event for target without blocking. Returns
	// ErrUnroutable if the dispatcher is Stopping/Stopped.
	Post(event Event, target any) error

	// Send enqueues event for target and blocks until its handler has
	// returned. Returns ErrWouldDeadlock if called from the dispatcher's
	// own thread.
	Send(event Event, target any) error

	// RemoveEvents removes queued entries matching eventID (or all, if
	// eventID == InvalidID) and target (or any, if target == nil).
	// Returns the number of entries removed.
	RemoveEvents(eventID Id, target any) int

	// RemoveByReceiver removes agent-style queued entries whose ultimate
	// receiver is receiver.
	RemoveByReceiver(receiver any) int

	// IsDispatcherThread reports whether the calling goroutine is the
	// dispatcher's own owned thread.
	IsDispatcherThread() bool

	// Shutdown stops the dispatch loop. Idempotent.
	Shutdown() error
}

// Receiver is the opaque target bound to a posted Event; a Dispatcher
// invokes HandleEvent on the dispatcher's own thread.
type Receiver interface {
	HandleEvent(event Event)
}
