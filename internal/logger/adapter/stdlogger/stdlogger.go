// Package stdlogger adapts the global zerolog logger to the printf and
// key-value logger interfaces of third-party libraries (go-redis, cron).
package stdlogger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger writes through the global zerolog logger at call time, so it
// follows any later logger.Init.
type Logger struct {
	component string
}

// New creates a new adapter.
func New() *Logger {
	return &Logger{}
}

// WithComponent returns an adapter tagging every entry with component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) event(level zerolog.Level) *zerolog.Event {
	e := log.WithLevel(level)
	if l.component != "" {
		e = e.Str("component", l.component)
	}

	return e
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.event(zerolog.DebugLevel).Msgf(format, args...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.event(zerolog.InfoLevel).Msgf(format, args...)
}

// Warningf logs at warn level.
func (l *Logger) Warningf(format string, args ...any) {
	l.event(zerolog.WarnLevel).Msgf(format, args...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.event(zerolog.ErrorLevel).Msgf(format, args...)
}

// Printf implements the go-redis internal logger.
func (l *Logger) Printf(_ context.Context, format string, args ...any) {
	l.event(zerolog.WarnLevel).Msgf(format, args...)
}

// Info implements cron.Logger.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.fields(l.event(zerolog.DebugLevel), keysAndValues).Msg(msg)
}

// Error implements cron.Logger.
func (l *Logger) Error(err error, msg string, keysAndValues ...any) {
	l.fields(l.event(zerolog.ErrorLevel).Err(err), keysAndValues).Msg(msg)
}

func (l *Logger) fields(e *zerolog.Event, keysAndValues []any) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		e = e.Interface(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1])
	}

	return e
}
