// File: facade/scheduler.go
// Author: momentics <momentics@gmail.com>
//
// timerScheduler adapts timer.Timer to api.Scheduler for callers that
// want plain fire-after-duration callbacks without depending on the
// timer package's listener/cookie contract directly.

package facade

import (
	"time"

	"github.com/evreactor/core/api"
	"github.com/evreactor/core/timer"
)

type timerScheduler struct {
	tm *timer.Timer
}

var _ api.Scheduler = (*timerScheduler)(nil)

// Schedule registers fn to run once, delayNanos from now, on the
// Timer's own tick thread. fn must not block.
func (s *timerScheduler) Schedule(delayNanos int64, fn func()) (api.Cancelable, error) {
	delayMs := delayNanos / int64(time.Millisecond)
	if delayMs < 0 {
		delayMs = 0
	}
	return s.tm.AddTimer(callbackListener(fn), uint32(delayMs), 0)
}

// schedulerEpoch anchors Now; time.Since on it reads Go's monotonic clock.
var schedulerEpoch = time.Now()

// Now returns monotonic time in nanoseconds, measured from package
// initialisation.
func (s *timerScheduler) Now() int64 {
	return int64(time.Since(schedulerEpoch))
}

// callbackListener adapts a plain func() to api.TimerListener.
type callbackListener func()

func (f callbackListener) OnTimeout(uintptr) { f() }
