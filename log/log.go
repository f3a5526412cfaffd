// Package log builds the process zerolog.Logger from configuration.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/skim/config"
	"github.com/rs/zerolog"
)

// Option configures New.
type Option func(*options)

type options struct {
	stderr  io.Writer
	verbose bool
}

// WithOutput replaces stderr as the destination when no file is configured.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithVerbose forces debug level regardless of configuration.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger for cfg and a closer for any file it opened.
func New(cfg config.LogConfig, opts ...Option) (zerolog.Logger, io.Closer, error) {
	o := options{stderr: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	var out io.Writer = o.stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}

	if cfg.Format != config.FormatJSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.File != "",
		}
	}

	level := ParseLevel(cfg.Level)
	if o.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
