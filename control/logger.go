// control/logger.go
// Author: momentics <momentics@gmail.com>
//
// zerolog-backed implementation of api.Logger. Never reached through a
// package-level global: every Dispatcher/Selector/Timer receives its
// Logger via its Config at construction. FdBinder takes no Logger.

package control

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/evreactor/core/api"
)

// ZerologAdapter wraps a zerolog.Logger to satisfy api.Logger.
type ZerologAdapter struct {
	log zerolog.Logger
}

// NewLogger builds a console-formatted zerolog.Logger at the given level
// ("debug", "info", "warn", "error"; unrecognized values fall back to info)
// writing to os.Stderr, matching the console-writer convention the rest of
// the corpus uses for local/dev logging.
func NewLogger(level string) *ZerologAdapter {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	return &ZerologAdapter{log: zerolog.New(w).With().Timestamp().Logger()}
}

// NewZerologAdapter wraps an already-configured zerolog.Logger.
func NewZerologAdapter(l zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{log: l}
}

func withFields(e *zerolog.Event, fields []api.Field) *zerolog.Event {
	for _, f := range fields {
		e = e.Interface(f.Key, f.Value)
	}
	return e
}

func (z *ZerologAdapter) Debug(msg string, fields ...api.Field) {
	withFields(z.log.Debug(), fields).Msg(msg)
}

func (z *ZerologAdapter) Info(msg string, fields ...api.Field) {
	withFields(z.log.Info(), fields).Msg(msg)
}

func (z *ZerologAdapter) Warn(msg string, fields ...api.Field) {
	withFields(z.log.Warn(), fields).Msg(msg)
}

func (z *ZerologAdapter) Error(msg string, fields ...api.Field) {
	withFields(z.log.Error(), fields).Msg(msg)
}

func (z *ZerologAdapter) With(fields ...api.Field) api.Logger {
	ctx := z.log.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &ZerologAdapter{log: ctx.Logger()}
}

// NopLogger discards everything; used as the default when Config.Logger is nil.
type NopLogger struct{}

func (NopLogger) Debug(string, ...api.Field)     {}
func (NopLogger) Info(string, ...api.Field)      {}
func (NopLogger) Warn(string, ...api.Field)      {}
func (NopLogger) Error(string, ...api.Field)     {}
func (n NopLogger) With(...api.Field) api.Logger { return n }
