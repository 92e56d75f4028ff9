package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/leengari/jsondb/internal/config"
)

func TestSetupLoggerConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := SetupLogger(config.LoggingConfig{Level: "warn"}, &buf)
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("table saved", "table", "users", "rows", 3)

	out := buf.String()
	assert.Assert(t, !strings.Contains(out, "hidden"))
	assert.Assert(t, strings.Contains(out, "level=WARN"))
	assert.Assert(t, strings.Contains(out, "table=users"))
	assert.Assert(t, strings.Contains(out, "rows=3"))
}

func TestMultiHandlerFansOut(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	multi := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(multi).With("component", "journal").WithGroup("entry")

	logger.Debug("replayed", "seq", 7)
	logger.Error("torn frame", "seq", 8)

	assert.Assert(t, strings.Contains(debugBuf.String(), "component=journal"))
	assert.Assert(t, strings.Contains(debugBuf.String(), "entry.seq=7"))
	assert.Assert(t, strings.Contains(debugBuf.String(), "entry.seq=8"))

	assert.Assert(t, !strings.Contains(errorBuf.String(), "replayed"))
	assert.Assert(t, strings.Contains(errorBuf.String(), "entry.seq=8"))
}
