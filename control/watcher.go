// control/watcher.go
// Author: momentics <momentics@gmail.com>
//
// Optional file-driven hot-reload for ambient configuration. Watches a
// single file with fsnotify and, on a debounced write, calls a caller
// supplied parse function and feeds the result into a ConfigStore. Replaces
// the source material's package-level reload-hook list (a global) with an
// instance the caller owns and can Close.

package control

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/evreactor/core/api"
)

// ConfigWatcher watches cfgPath for writes and re-applies it to store.
type ConfigWatcher struct {
	store  *ConfigStore
	parse  func(path string) (map[string]any, error)
	path   string
	logger api.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	mu      sync.Mutex
	started bool
}

// NewConfigWatcher builds a watcher for path that applies parse's result to
// store on every debounced write. logger may be nil.
func NewConfigWatcher(store *ConfigStore, path string, parse func(path string) (map[string]any, error), logger api.Logger) *ConfigWatcher {
	if logger == nil {
		logger = NopLogger{}
	}
	return &ConfigWatcher{store: store, parse: parse, path: path, logger: logger}
}

// Start begins watching. Idempotent.
func (w *ConfigWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.path); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	w.done = make(chan struct{})
	w.started = true
	go w.run()
	return nil
}

func (w *ConfigWatcher) run() {
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				debounce.Reset(200 * time.Millisecond)
			}
		case <-debounce.C:
			cfg, err := w.parse(w.path)
			if err != nil {
				w.logger.Warn("config reload failed", api.F("path", w.path), api.F("error", err.Error()))
				continue
			}
			if err := w.store.SetConfig(cfg); err != nil {
				w.logger.Warn("config apply failed", api.F("path", w.path), api.F("error", err.Error()))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", api.F("error", err.Error()))
		}
	}
}

// Close stops watching and releases the inotify/kqueue handle.
func (w *ConfigWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return nil
	}
	close(w.done)
	w.started = false
	return w.watcher.Close()
}
