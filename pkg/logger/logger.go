package logger

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronLogger forwards robfig/cron diagnostics to slog.
type CronLogger struct {
	log *slog.Logger
}

var _ cron.Logger = (*CronLogger)(nil)

// New returns a cron-compatible logger tagged with component.
func New(base *slog.Logger, component string) *CronLogger {
	if base == nil {
		base = slog.Default()
	}
	return &CronLogger{log: base.With("component", component)}
}

// Info logs routine scheduler events at debug level; cron is chatty.
func (l *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

// Error logs scheduler failures.
func (l *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
