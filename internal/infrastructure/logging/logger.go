package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gridbeam/monome-core/internal/infrastructure/config"
)

// serviceName tags every log line so daemon output is attributable
// when aggregated with other services.
const serviceName = "monomed"

// Logger is the daemon's structured logger. It embeds *slog.Logger, so
// it satisfies the nilable Logger interfaces in the monome and bridge
// packages directly. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml: level
// and format (json or text) per the config, service and version as
// default fields, writing to stdout or stderr.
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return newWriter(cfg, version, w)
}

// newWriter is New with an explicit destination.
func newWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps a config level string to a slog.Level, defaulting to
// info on anything unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying extra default attributes, used
// to tag a component:
//
//	bridgeLog := log.With("component", "mqttbridge")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the logger used before configuration is loaded: JSON to
// stdout at info level, version "dev".
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
