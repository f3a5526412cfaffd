package skim

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Option configures a Registry, Reconciler or Controller.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

func newOptions(opts []Option) options {
	o := options{
		logger: zerolog.Nop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the time source. Useful for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator sets the generator for provisional session ids and
// client-side message ids. The default generates random UUIDs.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}
