// Package log wraps slog with the component-tagged setup shared by the
// subtrack binaries. The handler and threshold come from LOG_FORMAT and
// LOG_LEVEL, so the API server can stay on human-readable text while the
// worker and scheduler ship JSON to the log collector.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger whose records carry a component attribute.
// The attribute is attached once at construction rather than repeated at
// every call site.
type Logger struct {
	*slog.Logger
	handler   slog.Handler
	component string
}

// Config selects the handler, threshold, and initial component.
type Config struct {
	Level     slog.Level
	Format    string // "text" or "json"
	Component string
	Handler   slog.Handler // overrides Level and Format when set
}

// DefaultConfig reads LOG_LEVEL (debug, info, warn, error) and LOG_FORMAT
// (text, json) from the environment, defaulting to info-level text.
func DefaultConfig() Config {
	return Config{
		Level:     ParseLevel(os.Getenv("LOG_LEVEL")),
		Format:    os.Getenv("LOG_FORMAT"),
		Component: ComponentApp,
	}
}

// ParseLevel maps a level name to a slog.Level. Unknown names fall back
// to info rather than erroring; a typo in LOG_LEVEL should not take the
// process down.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// New builds a logger from the configuration.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		opts := &slog.HandlerOptions{Level: config.Level}
		if strings.EqualFold(config.Format, "json") {
			handler = slog.NewJSONHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(os.Stdout, opts)
		}
	}
	return &Logger{
		Logger:    slog.New(handler).With(FieldComponent, config.Component),
		handler:   handler,
		component: config.Component,
	}
}

// With returns a logger with extra attributes on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		handler:   l.handler,
		component: l.component,
	}
}

// WithComponent returns a logger tagged for another component. It starts
// from the shared handler, so attributes added with With do not leak
// across components.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    slog.New(l.handler).With(FieldComponent, component),
		handler:   l.handler,
		component: component,
	}
}

// SetDefault installs this logger as the process-wide slog default, so
// packages logging through bare slog calls share the same handler.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}
