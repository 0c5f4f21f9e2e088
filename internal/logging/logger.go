// Package logging builds the orchestrator's single structured logger: one
// JSON object per line to stderr, every line carrying "application" and
// "environment" tags, mirroring orch.logger's loguru sink in the original
// implementation.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger that writes JSON lines to stderr with the given
// application/environment tags baked into every entry, at the given
// threshold level (one of DEBUG, INFO, WARN, ERROR; defaults to INFO on an
// unrecognized value).
func New(application, environment, level string) (*zap.Logger, error) {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "message",
		StacktraceKey:  "error_stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		parseLevel(level),
	)

	logger := zap.New(core).With(
		zap.String("application", application),
		zap.String("environment", environment),
	)

	return logger, nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
