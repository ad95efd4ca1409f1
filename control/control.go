// control/control.go
// Author: momentics <momentics@gmail.com>
//
// Control aggregates ConfigStore, MetricsRegistry and DebugProbes behind the
// single api.Control surface the facade exposes to callers.

package control

import "github.com/evreactor/core/api"

// Control implements api.Control by composing the three ambient registries.
type Control struct {
	Config  *ConfigStore
	Metrics *MetricsRegistry
	Debug   *DebugProbes
}

// NewControl builds a Control with fresh, empty registries.
func NewControl() *Control {
	return &Control{
		Config:  NewConfigStore(),
		Metrics: NewMetricsRegistry(),
		Debug:   NewDebugProbes(),
	}
}

var _ api.Control = (*Control)(nil)

func (c *Control) GetConfig() map[string]any          { return c.Config.GetConfig() }
func (c *Control) SetConfig(cfg map[string]any) error { return c.Config.SetConfig(cfg) }
func (c *Control) Stats() map[string]any              { return c.Metrics.Stats() }
func (c *Control) OnReload(fn func())                 { c.Config.OnReload(fn) }
func (c *Control) RegisterDebugProbe(name string, fn func() any) {
	c.Debug.RegisterProbe(name, fn)
}
