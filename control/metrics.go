// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for dispatcher/selector/timer activity.
// Exposes named counters alongside the freeform metrics map the corpus's
// control package already used, so ad-hoc gauges and the fixed domain
// counters share one snapshot surface.

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsRegistry holds mutable and read-only metrics for a single runtime.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time

	posts       atomic.Int64
	sends       atomic.Int64
	removed     atomic.Int64
	pollWakeups atomic.Int64
	timerFires  atomic.Int64
	overflows   atomic.Int64
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a freeform metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// IncPosts counts one Dispatcher.Post call.
func (mr *MetricsRegistry) IncPosts() { mr.posts.Add(1) }

// IncSends counts one Dispatcher.Send call.
func (mr *MetricsRegistry) IncSends() { mr.sends.Add(1) }

// IncRemoved adds n to the count of events removed via RemoveEvents /
// RemoveByReceiver / RemoveTimedEvent.
func (mr *MetricsRegistry) IncRemoved(n int) { mr.removed.Add(int64(n)) }

// IncPollWakeups counts one return from the Selector's blocking poll call.
func (mr *MetricsRegistry) IncPollWakeups() { mr.pollWakeups.Add(1) }

// IncTimerFires counts one Timer node firing (one-shot or periodic).
func (mr *MetricsRegistry) IncTimerFires() { mr.timerFires.Add(1) }

// IncOverflows counts one Selector.AddListener call rejected for exceeding
// the poll-fd cap.
func (mr *MetricsRegistry) IncOverflows() { mr.overflows.Add(1) }

// Stats returns the current snapshot, merging the fixed domain counters with
// the freeform metrics map. Satisfies api.Control.Stats.
func (mr *MetricsRegistry) Stats() map[string]any {
	mr.mu.RLock()
	out := make(map[string]any, len(mr.metrics)+6)
	for k, v := range mr.metrics {
		out[k] = v
	}
	mr.mu.RUnlock()

	out["dispatcher_posts"] = mr.posts.Load()
	out["dispatcher_sends"] = mr.sends.Load()
	out["events_removed"] = mr.removed.Load()
	out["selector_poll_wakeups"] = mr.pollWakeups.Load()
	out["timer_fires"] = mr.timerFires.Load()
	out["selector_overflows"] = mr.overflows.Load()
	return out
}
