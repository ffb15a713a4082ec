// Package logging builds the zerolog logger shared by the CLI and the
// library packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const appName = "pyocd-probe"

// Options selects where and how log records are written.
type Options struct {
	Level string
	// Format is "console" or "json".
	Format string
	// File receives the log when set; otherwise Out, then stderr.
	File    string
	Out     io.Writer
	NoColor bool
}

// New returns a configured logger and a function that releases its file.
func New(opts Options) (zerolog.Logger, func() error, error) {
	closer := func() error { return nil }

	level, ok := ParseLevel(opts.Level)
	if !ok {
		return zerolog.Nop(), closer, fmt.Errorf("unknown log level %q", opts.Level)
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("could not open log file: %w", err)
		}
		out = f
		closer = f.Close
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.NoColor || opts.File != "",
		}
	case "json":
	default:
		_ = closer()
		return zerolog.Nop(), func() error { return nil }, fmt.Errorf("unknown log format %q", opts.Format)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Str("app", appName).Logger()
	return logger, closer, nil
}

// ParseLevel maps a level name to a zerolog level. An empty name is info.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return zerolog.InfoLevel, true
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
