// File: timer/nop.go
// Author: momentics <momentics@gmail.com>

package timer

import "github.com/evreactor/core/api"

type nopLogger struct{}

func (nopLogger) Debug(string, ...api.Field)     {}
func (nopLogger) Info(string, ...api.Field)      {}
func (nopLogger) Warn(string, ...api.Field)      {}
func (nopLogger) Error(string, ...api.Field)     {}
func (n nopLogger) With(...api.Field) api.Logger { return n }
