package pion

import (
	"fmt"

	"github.com/pion/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// loggerFactory routes pion's internal logs through zerolog.
type loggerFactory struct {
	base zerolog.Logger
}

func newLoggerFactory() logging.LoggerFactory {
	return loggerFactory{base: log.With().Str("component", "pion").Logger()}
}

func (f loggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return scopedLogger{l: f.base.With().Str("scope", scope).Logger()}
}

type scopedLogger struct {
	l zerolog.Logger
}

func (s scopedLogger) Trace(msg string) { s.l.Trace().Msg(msg) }
func (s scopedLogger) Tracef(format string, args ...interface{}) {
	s.l.Trace().Msg(fmt.Sprintf(format, args...))
}
func (s scopedLogger) Debug(msg string) { s.l.Debug().Msg(msg) }
func (s scopedLogger) Debugf(format string, args ...interface{}) {
	s.l.Debug().Msg(fmt.Sprintf(format, args...))
}
func (s scopedLogger) Info(msg string) { s.l.Info().Msg(msg) }
func (s scopedLogger) Infof(format string, args ...interface{}) {
	s.l.Info().Msg(fmt.Sprintf(format, args...))
}
func (s scopedLogger) Warn(msg string) { s.l.Warn().Msg(msg) }
func (s scopedLogger) Warnf(format string, args ...interface{}) {
	s.l.Warn().Msg(fmt.Sprintf(format, args...))
}
func (s scopedLogger) Error(msg string) { s.l.Error().Msg(msg) }
func (s scopedLogger) Errorf(format string, args ...interface{}) {
	s.l.Error().Msg(fmt.Sprintf(format, args...))
}
