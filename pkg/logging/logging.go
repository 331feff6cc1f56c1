// Package logging configures the process-wide slog logger: level parsing
// (including the application-level "critical" severity), optional rotating
// file output, and operation tracing with credential redaction.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
)

// LevelCritical sits above slog.LevelError and renders as "CRITICAL".
const LevelCritical = slog.Level(12)

// levelVar backs the active handler so admin updates take effect without
// rebuilding the logger.
var levelVar = new(slog.LevelVar)

// Setup installs the default slog logger per the logging configuration.
// The returned closer flushes and closes the log file, if one is configured.
func Setup(cfg config.LoggingConfig) (func() error, error) {
	levelVar.Set(ParseLevel(cfg.Level))
	tracingEnabled.Store(cfg.EnableTracing)

	var w io.Writer = os.Stdout
	closer := func() error { return nil }

	if cfg.File != "" {
		rw, err := newRotatingWriter(cfg.File, int64(cfg.MaxSizeMB)*1024*1024, cfg.MaxBackups)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(os.Stdout, rw)
		closer = rw.Close
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: levelVar,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(WithTraceIDs(handler)))
	return closer, nil
}

// SetLevel adjusts the active log level without rebuilding the handler.
func SetLevel(l config.LogLevel) {
	levelVar.Set(ParseLevel(l))
}

// ParseLevel maps the configured level name to a slog.Level.
// Unknown values fall back to info.
func ParseLevel(l config.LogLevel) slog.Level {
	switch config.LogLevel(strings.ToLower(string(l))) {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarning:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	case config.LogLevelCritical:
		return LevelCritical
	default:
		return slog.LevelInfo
	}
}

// Critical logs at the critical level on the default logger.
func Critical(msg string, args ...any) {
	slog.Log(context.Background(), LevelCritical, msg, args...)
}
