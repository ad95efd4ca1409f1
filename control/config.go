// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload
// propagation. Holds ambient, non-domain knobs only (log level, metrics and
// debug enablement, selector poll-fd cap for diagnostics) — never the
// constructor-time domain parameters (tick_ms, queue capacity), which are
// immutable per dispatcher/selector/timer instance.

package control

import "sync"

// ConfigStore is a dynamic key/value map with atomic snapshot and listener
// support. It is the single non-global home for hot-reloadable state; no
// component reaches configuration through a package-level variable.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// GetConfig returns a copy of all config values.
func (cs *ConfigStore) GetConfig() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	snapshot := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		snapshot[k] = v
	}
	return snapshot
}

// SetConfig merges new values and dispatches reload notifications.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) error {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	hooks := make([]func(), len(cs.listeners))
	copy(hooks, cs.listeners)
	cs.mu.Unlock()

	for _, fn := range hooks {
		go fn()
	}
	return nil
}

// OnReload registers a listener hook called on every config change.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
