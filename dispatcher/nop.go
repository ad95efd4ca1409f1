// File: dispatcher/nop.go
// Author: momentics <momentics@gmail.com>

package dispatcher

import "github.com/evreactor/core/api"

// nopLogger is the default when Config.Logger is left nil; the domain
// packages don't depend on control, so they carry their own trivial
// no-op rather than importing control.NopLogger.
type nopLogger struct{}

func (nopLogger) Debug(string, ...api.Field)     {}
func (nopLogger) Info(string, ...api.Field)      {}
func (nopLogger) Warn(string, ...api.Field)      {}
func (nopLogger) Error(string, ...api.Field)     {}
func (n nopLogger) With(...api.Field) api.Logger { return n }
