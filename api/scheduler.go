// Package api
// Author: momentics
//
// Scheduler contract for high-precision timed and event-driven job execution,
// satisfied by timer.Timer through a thin adapter in the facade package.

package api

// Cancelable is a handle to a scheduled unit of work that may be canceled
// before it fires. timer.TimerHandle implements this.
type Cancelable interface {
	// Cancel removes the pending callback. Returns ErrNotFound if it has
	// already fired (and, for one-shot timers, already been removed).
	Cancel() error
}

// Scheduler abstracts event/timer scheduling for async/highload loops.
type Scheduler interface {
	// Schedule schedules a callback to be executed after delayNanos.
	Schedule(delayNanos int64, fn func()) (Cancelable, error)

	// Now returns monotonic time in nanoseconds.
	Now() int64
}
