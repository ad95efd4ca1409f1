// File: facade/runtime.go
// Author: momentics <momentics@gmail.com>
//
// Runtime aggregates the core's domain components (Dispatcher, Selector,
// Timer) and ambient components (Control, Affinity, Logger)
// behind a single construction point, mirroring the corpus convention of
// one facade type per deployable process wiring everything from one
// immutable Config.

package facade

import (
	"fmt"
	"sync"
	"time"

	"github.com/evreactor/core/affinity"
	"github.com/evreactor/core/api"
	"github.com/evreactor/core/control"
	"github.com/evreactor/core/dispatcher"
	"github.com/evreactor/core/selector"
	"github.com/evreactor/core/timer"
)

// Config holds parameters immutable per run. Hot-reloadable ambient
// knobs (log level, metrics/debug enablement) are not here: they live in
// the Control's ConfigStore and are changed through SetConfig/a
// ConfigWatcher, never by reconstructing the Runtime.
type Config struct {
	Name string // debug name prefixed to every owned component

	LogLevel string // "debug", "info", "warn", "error"; default "info"

	EnableMetrics bool
	EnableDebug   bool

	CPUAffinity   bool // whether to pin owned threads at all
	DispatcherCPU int  // logical CPU for the standalone work dispatcher, or -1 (0 also means none)
	SelectorCPU   int  // logical CPU for the selector's poll thread, or -1 (0 also means none)
	TimerCPU      int  // logical CPU for the timer's tick thread, or -1 (0 also means none)

	TimerTickMs    int  // tick granularity in milliseconds
	TimerStoppable bool // whether Timer.Stop() is permitted

	// ConfigPath and ConfigParse, if both set, enable a file-driven
	// hot-reload watcher over the ambient ConfigStore.
	ConfigPath  string
	ConfigParse func(path string) (map[string]any, error)
}

// DefaultConfig returns sane defaults for a single-process deployment.
func DefaultConfig() *Config {
	return &Config{
		Name:           "core",
		LogLevel:       "info",
		EnableMetrics:  true,
		EnableDebug:    true,
		CPUAffinity:    false,
		DispatcherCPU:  -1,
		SelectorCPU:    -1,
		TimerCPU:       -1,
		TimerTickMs:    10,
		TimerStoppable: true,
	}
}

// Runtime is the main facade type. It implements api.GracefulShutdown so
// callers have one uniform shutdown path across every deployment shape.
type Runtime struct {
	config *Config

	logger  api.Logger
	control *control.Control
	aff     api.Affinity

	disp *dispatcher.Dispatcher
	sel  *selector.Selector
	tm   *timer.Timer

	watcher *control.ConfigWatcher

	startedAt time.Time

	mu      sync.RWMutex
	started bool
}

var _ api.GracefulShutdown = (*Runtime)(nil)

// New constructs a Runtime: a Control, an Affinity, a standalone work
// Dispatcher, a Selector, and a Timer, all sharing one Logger and one
// Metrics sink so Control.Stats() reflects every owned component.
func New(cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	r := &Runtime{config: cfg, startedAt: time.Now()}

	r.logger = control.NewLogger(cfg.LogLevel)
	r.control = control.NewControl()
	r.aff = affinity.New()

	if !cfg.CPUAffinity {
		r.aff = noopAffinity{}
	}

	var metrics api.Metrics = api.NopMetrics{}
	if cfg.EnableMetrics {
		metrics = r.control.Metrics
	}

	r.control.SetConfig(map[string]any{
		"name":            cfg.Name,
		"log_level":       cfg.LogLevel,
		"metrics_enabled": cfg.EnableMetrics,
		"debug_enabled":   cfg.EnableDebug,
		"cpu_affinity":    cfg.CPUAffinity,
		"timer_tick_ms":   cfg.TimerTickMs,
		"timer_stoppable": cfg.TimerStoppable,
	})

	r.disp = dispatcher.New(dispatcher.Config{
		Name:     cfg.Name + ".dispatcher",
		Logger:   r.logger,
		Metrics:  metrics,
		Affinity: r.aff,
		CPU:      cfg.DispatcherCPU,
	})

	sel, err := selector.New(selector.Config{
		Name:     cfg.Name + ".selector",
		Logger:   r.logger,
		Metrics:  metrics,
		Affinity: r.aff,
		CPU:      cfg.SelectorCPU,
	})
	if err != nil {
		r.disp.Shutdown()
		return nil, fmt.Errorf("selector init: %w", err)
	}
	r.sel = sel

	tickMs := cfg.TimerTickMs
	if tickMs <= 0 {
		tickMs = 10
	}
	r.tm = timer.NewTimer(tickMs, cfg.TimerStoppable, timer.Config{
		Name:     cfg.Name + ".timer",
		Logger:   r.logger,
		Metrics:  metrics,
		Affinity: r.aff,
		CPU:      cfg.TimerCPU,
	})

	if cfg.EnableDebug {
		r.registerDebugProbes()
	}

	if cfg.ConfigPath != "" && cfg.ConfigParse != nil {
		r.watcher = control.NewConfigWatcher(r.control.Config, cfg.ConfigPath, cfg.ConfigParse, r.logger)
		if err := r.watcher.Start(); err != nil {
			r.logger.Warn("config watcher start failed",
				api.F("path", cfg.ConfigPath), api.F("error", err.Error()))
			r.watcher = nil
		}
	}

	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	return r, nil
}

func (r *Runtime) registerDebugProbes() {
	r.control.Debug.RegisterProbe("dispatcher.queue_depth", func() any {
		return r.disp.QueueDepth()
	})
	r.control.Debug.RegisterProbe("selector.listener_count", func() any {
		return len(r.sel.Listeners())
	})
	r.control.Debug.RegisterProbe("timer.entry_count", func() any {
		return r.tm.EntryCount()
	})
	r.control.Debug.RegisterProbe("service.info", func() any {
		return api.ServiceInfo{
			Name:      r.config.Name,
			Version:   "0",
			Build:     "dev",
			StartedAt: r.startedAt,
		}
	})
}

// GetControl returns the Control interface for config, metrics, and
// debug probe access.
func (r *Runtime) GetControl() api.Control { return r.control }

// GetDebugAPI returns the Debug interface for runtime introspection.
func (r *Runtime) GetDebugAPI() api.Debug { return r.control.Debug }

// GetAffinity returns the Affinity collaborator shared by every owned
// thread.
func (r *Runtime) GetAffinity() api.Affinity { return r.aff }

// GetDispatcher returns the standalone work Dispatcher.
func (r *Runtime) GetDispatcher() *dispatcher.Dispatcher { return r.disp }

// GetSelector returns the Selector driving fd readiness.
func (r *Runtime) GetSelector() *selector.Selector { return r.sel }

// GetTimer returns the tick-driven Timer.
func (r *Runtime) GetTimer() *timer.Timer { return r.tm }

// GetScheduler adapts the Timer to api.Scheduler for callers that only
// need fire-once/fire-after semantics without touching Timer directly.
func (r *Runtime) GetScheduler() api.Scheduler {
	return &timerScheduler{tm: r.tm}
}

// Submit posts event to the standalone Dispatcher for target, without
// blocking.
func (r *Runtime) Submit(event api.Event, target any) error {
	return r.disp.Post(event, target)
}

// RegisterHandler binds fd's readiness (matching mask) to listener
// through the Selector.
func (r *Runtime) RegisterHandler(fd uintptr, mask api.PollMask, listener api.SelectorListener, cookie uintptr) error {
	return r.sel.AddListener(fd, mask, listener, cookie)
}

// UnregisterHandler removes a prior RegisterHandler binding.
func (r *Runtime) UnregisterHandler(fd uintptr, listener api.SelectorListener) error {
	return r.sel.RemoveListener(fd, listener)
}

// RegisterReloadHook runs fn on every ambient config change (SetConfig
// or a successful file watch reload).
func (r *Runtime) RegisterReloadHook(fn func()) {
	r.control.OnReload(fn)
}

// Shutdown stops the watcher (if any), the Timer, the Selector, and the
// Dispatcher, in that order. Idempotent.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	r.mu.Unlock()

	if r.watcher != nil {
		_ = r.watcher.Close()
	}
	_ = r.tm.Stop()
	if err := r.sel.Shutdown(); err != nil {
		return err
	}
	return r.disp.Shutdown()
}

// noopAffinity is used when Config.CPUAffinity is false, so owned
// threads never attempt a pin even if a CPU index was configured.
type noopAffinity struct{}

func (noopAffinity) Pin(int) error { return nil }
func (noopAffinity) Unpin() error  { return nil }
func (noopAffinity) Current() int  { return -1 }
