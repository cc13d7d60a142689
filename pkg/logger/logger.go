// Package logger builds the application logger on top of a zap core.
package logger

import (
	"encoding/json"
	"strings"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns an application logger that forwards every log message to a zap
// core. Pretty enables human readable console output for local development.
func New(level string, pretty bool) (ectologger.Logger, func()) {
	zl := newZap(level, pretty)

	log := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		writeToZap(zl, msg)
	})

	flush := func() {
		_ = zl.Sync()
	}
	return log, flush
}

func newZap(level string, pretty bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true

	zl, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return zl
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// writeToZap flattens a log message into zap fields. The message is round
// tripped through JSON so nested field maps come out as plain values.
func writeToZap(zl *zap.Logger, msg ectologger.EctoLogMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		zl.Error("failed to encode log message", zap.Error(err))
		return
	}

	var entry map[string]any
	if err := json.Unmarshal(raw, &entry); err != nil {
		zl.Error("failed to decode log message", zap.Error(err))
		return
	}

	level := zapcore.InfoLevel
	message := ""
	fields := make([]zap.Field, 0, len(entry))
	for k, v := range entry {
		switch strings.ToLower(k) {
		case "level":
			if s, ok := v.(string); ok {
				level = parseLevel(s)
			}
		case "message", "msg":
			if s, ok := v.(string); ok {
				message = s
			}
		default:
			if v == nil {
				continue
			}
			fields = append(fields, zap.Any(strings.ToLower(k), v))
		}
	}

	if ce := zl.Check(level, message); ce != nil {
		ce.Write(fields...)
	}
}
