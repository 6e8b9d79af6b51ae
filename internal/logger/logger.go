// Package logger configures the process-wide slog logger and hands out
// per-component loggers whose levels can be tuned independently.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LevelTrace sits below debug and is used for per-frame diagnostics.
const LevelTrace = slog.Level(-8)

type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	Log             *slog.Logger
	base            slog.Handler
	defaultLevel    slog.Level
	componentLevels map[string]slog.Level
	levelsMu        sync.RWMutex
	loggerCache     sync.Map
)

func init() {
	Configure("text", LogLevelInfo, nil, os.Stdout)
}

// Configure replaces the global handler. Component loggers handed out
// earlier keep their old handler, so call this before starting workers.
func Configure(format string, level LogLevel, components map[string]LogLevel, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}

	levelsMu.Lock()
	defaultLevel = ParseLevel(string(level))
	componentLevels = make(map[string]slog.Level, len(components))
	for name, lvl := range components {
		componentLevels[name] = ParseLevel(string(lvl))
	}
	levelsMu.Unlock()

	opts := &slog.HandlerOptions{
		Level:       LevelTrace,
		ReplaceAttr: replaceLevel,
	}
	if strings.ToLower(format) == "json" {
		base = slog.NewJSONHandler(w, opts)
	} else {
		base = slog.NewTextHandler(w, opts)
	}

	loggerCache = sync.Map{}
	Log = slog.New(&componentHandler{inner: base})
}

// Component returns the logger for a named component.
func Component(name string) *slog.Logger {
	if l, ok := loggerCache.Load(name); ok {
		return l.(*slog.Logger)
	}
	h := &componentHandler{
		inner:     base.WithAttrs([]slog.Attr{slog.String("component", name)}),
		component: name,
	}
	l, _ := loggerCache.LoadOrStore(name, slog.New(h))
	return l.(*slog.Logger)
}

// Trace logs at LevelTrace.
func Trace(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelTrace, msg, args...)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level names a known level.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

func effectiveLevel(component string) slog.Level {
	levelsMu.RLock()
	defer levelsMu.RUnlock()

	if level, ok := componentLevels[component]; ok {
		return level
	}
	return defaultLevel
}

type componentHandler struct {
	inner     slog.Handler
	component string
}

func (h *componentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= effectiveLevel(h.component)
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentHandler{inner: h.inner.WithAttrs(attrs), component: h.component}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{inner: h.inner.WithGroup(name), component: h.component}
}
