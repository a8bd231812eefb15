package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCronLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	l := New(base, "cron")

	l.Info("wake", "now", "07:00")
	assert.Empty(t, buf.String(), "cron info is debug noise")

	l.Error(errors.New("panic in job"), "job failed", "entry", 1)
	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "component=cron")
	assert.Contains(t, out, `error="panic in job"`)
	assert.Contains(t, out, "entry=1")
}
