// Package api
// Author: momentics
//
// Logger is the structured-logging collaborator every component receives at
// construction. There is no package-level default: callers that don't want
// logging pass a no-op implementation (see control.NopLogger).

package api

// Field is one structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F is a convenience constructor for Field.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Logger is the minimal structured-logging surface the core depends on.
// control.ZerologAdapter implements it over github.com/rs/zerolog.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a derived Logger that always includes the given fields.
	With(fields ...Field) Logger
}
