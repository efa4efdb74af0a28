// Package logger owns the process-wide structured logger. Built on
// log/slog with a text or JSON handler selected by config; every line
// carries a component attribute so multi-process deployments stay
// greppable.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/emberly-app/emberly/internal/config"
)

// defaultComponent tags log lines when no component is configured.
const defaultComponent = "api_server"

// Config controls handler construction.
type Config struct {
	Level     string
	Format    string // "text" or "json"
	Component string
	AddSource bool
}

var (
	mu     sync.RWMutex
	global *slog.Logger
)

// InitFromConfig initializes the global logger from app config.
func InitFromConfig(c *config.Config) {
	if c == nil {
		Init(nil)
		return
	}
	Init(&Config{
		Level:     c.Log.Level,
		Format:    c.Log.Format,
		Component: c.Log.Component,
		AddSource: c.Log.Source,
	})
}

// Init sets up the global logger. Safe to call multiple times; a nil
// config yields text output at info level.
func Init(c *Config) {
	cfg := Config{}
	if c != nil {
		cfg = *c
	}
	if cfg.Component == "" {
		cfg.Component = defaultComponent
	}

	mu.Lock()
	global = slog.New(newHandler(cfg)).With("component", cfg.Component)
	mu.Unlock()
}

// newHandler builds the slog handler for the given config.
func newHandler(cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		return slog.NewJSONHandler(os.Stdout, opts)
	}

	// text output carries a human-readable timestamp
	opts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			return slog.String(slog.TimeKey, time.Now().Format("2006-01-02 15:04:05"))
		}
		return a
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

// L returns the global logger, initializing the default one on first
// use. Always returns a non-nil instance.
func L() *slog.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}

	Init(nil)

	mu.RLock()
	defer mu.RUnlock()
	return global
}

// With creates a child logger with additional attributes.
func With(args ...any) *slog.Logger { return L().With(args...) }

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
