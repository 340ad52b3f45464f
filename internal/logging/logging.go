// Package logging wraps zerolog with the named structured events the
// core engines emit: hold_created, hold_expired,
// payment_webhook_handled, payment_webhook_failed.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl zerolog.Logger
}

// New builds a console-friendly logger in dev, JSON otherwise.
func New(pretty bool) Logger {
	var w = os.Stdout
	base := zerolog.New(w).With().Timestamp().Logger()
	if pretty {
		base = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return Logger{zl: base}
}

// NewWithWriter builds a JSON logger writing to w, for tests that need
// to assert on emitted events.
func NewWithWriter(w io.Writer) Logger {
	return Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

// Event starts a structured info-level record tagged with the given
// event name, e.g. logger.Event("hold_created").Str("hold_id", id).Send().
func (l Logger) Event(name string) *zerolog.Event {
	return l.zl.Info().Str("event", name)
}

// ErrorEvent starts a structured error-level record tagged with name.
func (l Logger) ErrorEvent(name string, err error) *zerolog.Event {
	return l.zl.Error().Str("event", name).Err(err)
}

func (l Logger) Raw() zerolog.Logger {
	return l.zl
}
