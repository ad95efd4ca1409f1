// Package api
// Author: momentics
//
// Metrics is the narrow counters contract Dispatcher/Selector/Timer are
// wired against; control.MetricsRegistry satisfies it. Kept here, not in
// control, so the domain packages depend only on api and never on control
// directly.

package api

// Metrics collects counters observable through Control.Stats.
type Metrics interface {
	IncPosts()
	IncSends()
	IncRemoved(n int)
	IncPollWakeups()
	IncTimerFires()
	IncOverflows()
}

// NopMetrics discards every increment; the default when Config.Metrics
// is nil.
type NopMetrics struct{}

func (NopMetrics) IncPosts()       {}
func (NopMetrics) IncSends()       {}
func (NopMetrics) IncRemoved(int)  {}
func (NopMetrics) IncPollWakeups() {}
func (NopMetrics) IncTimerFires()  {}
func (NopMetrics) IncOverflows()   {}
