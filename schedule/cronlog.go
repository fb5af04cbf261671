package schedule

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var _ cron.Logger = cronLogger{}

// cronLogger routes robfig/cron's logging through zerolog. Info is demoted to debug
// because cron logs every wake-up.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
