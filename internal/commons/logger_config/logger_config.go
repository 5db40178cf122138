package logger_config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the shared structured logger.
// It is safe for concurrent use.
var Logger *slog.Logger

func init() {
	// debug|info|warn|error, text|json
	Configure(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stdout)
}

// Configure replaces Logger (and the slog default) with one writing to w.
// The config file's log section calls this after flags are parsed.
func Configure(level, format string, w io.Writer) *slog.Logger {
	Logger = New(level, format, w)
	slog.SetDefault(Logger)
	return Logger
}

// New builds a logger without touching the shared one.
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true, // file:line
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

// Sugar helpers (printf-style), convenient for quick telemetry.
func Debugf(format string, args ...any) { Logger.Debug(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { Logger.Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { Logger.Warn(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { Logger.Error(fmt.Sprintf(format, args...)) }
