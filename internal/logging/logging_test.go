package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestPrettyHandlerHandle(t *testing.T) {
	noColor(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		level slog.Level
		attr  slog.Attr
		want  []string
	}{
		{name: "debug", level: slog.LevelDebug, attr: slog.String("key", "value"), want: []string{"DEBUG:", `"key":"value"`}},
		{name: "info", level: slog.LevelInfo, attr: slog.Int("count", 42), want: []string{"INFO:", `"count":42`}},
		{name: "warn", level: slog.LevelWarn, attr: slog.Any("error", errors.New("boom")), want: []string{"WARN:", `"error":"boom"`}},
		{name: "error", level: slog.LevelError, attr: slog.Duration("took", 1500*time.Millisecond), want: []string{"ERROR:", `"took":"1.5s"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug}})

			record := slog.NewRecord(time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC), tt.level, "a message", 0)
			record.AddAttrs(tt.attr)
			require.NoError(t, h.Handle(ctx, record))

			out := buf.String()
			assert.True(t, strings.HasPrefix(out, "[03:04:05.006] "), out)
			assert.Contains(t, out, "a message")
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			assert.True(t, strings.HasSuffix(out, "\n"))
		})
	}
}

func TestPrettyHandlerWithAttrs(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{}))

	logger.With("run_id", "abc").Info("done", "results", 3)

	out := buf.String()
	assert.Contains(t, out, `"run_id":"abc"`)
	assert.Contains(t, out, `"results":3`)
}

func TestPrettyHandlerNoAttrs(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{})).Info("plain")

	assert.True(t, strings.HasSuffix(buf.String(), "INFO: plain\n"), buf.String())
}

func TestPrettyHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelWarn}}))

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, LevelFromString(in), in)
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "error", false).Warn("hidden")
	assert.Empty(t, buf.String())

	New(&buf, "debug", false).Debug("json line", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"json line"`)
}
