package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]struct {
		level string
		exp   slog.Level
	}{
		"Debug should be parsed.":                 {level: "debug", exp: slog.LevelDebug},
		"Upper case warn should be parsed.":       {level: "WARN", exp: slog.LevelWarn},
		"Error should be parsed.":                 {level: "error", exp: slog.LevelError},
		"Empty level should fall back to info.":   {level: "", exp: slog.LevelInfo},
		"Unknown level should fall back to info.": {level: "verbose", exp: slog.LevelInfo},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, ParseLevel(test.level))
		})
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info("hidden")
	l.Warn("shown", slog.String("task_id", "abc"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "task_id=abc")
}
