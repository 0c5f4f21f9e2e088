package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"DEBUG":   zapcore.DebugLevel,
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"WARN":    zapcore.WarnLevel,
		"WARNING": zapcore.WarnLevel,
		"ERROR":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}

	for input, want := range cases {
		assert.Equal(t, want, parseLevel(input), "input=%q", input)
	}
}

func TestNewReturnsUsableLogger(t *testing.T) {
	logger, err := New("orch", "test", "DEBUG")
	assert.NoError(t, err)
	assert.NotNil(t, logger)

	// Exercising the logger should not panic even though it writes to stderr.
	logger.Info("ready", zapcore.Field{Key: "component", Type: zapcore.StringType, String: "scheduler"})
}
