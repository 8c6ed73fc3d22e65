// Package logging configures the global zerolog logger.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Init replaces log.Logger with one writing to stderr.
func Init(level, format string) error {
	l, err := New(os.Stderr, level, format)
	if err != nil {
		return err
	}
	log.Logger = l
	return nil
}

// New builds a logger with timestamps and caller info. Console output is
// meant for humans, json for collectors.
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	if err := Validate(level, format); err != nil {
		return zerolog.Nop(), err
	}
	lvl, _ := parseLevel(level)

	out := w
	if strings.ToLower(format) != FormatJSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Caller().Logger(), nil
}

func Validate(level, format string) error {
	var errs []error
	if _, err := parseLevel(level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(format) {
	case "", FormatConsole, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q (want console or json)", format))
	}
	return errors.Join(errs...)
}

func parseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}
