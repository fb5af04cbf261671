// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

// New returns a logger tagged with serviceName and installs it as the global zerolog logger.
// A human-readable console writer is used when dev is true.
// Call sites add .Stack() on error events to include stacks.
func New(serviceName string, dev bool) zerolog.Logger {
	return NewWithWriter(os.Stdout, serviceName, dev)
}

func NewWithWriter(w io.Writer, serviceName string, dev bool) zerolog.Logger {
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}

	out := w
	if dev {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	l := zerolog.New(out).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
	log.Logger = l
	return l
}
