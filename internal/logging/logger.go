// Package logging wraps log/slog with per-module loggers whose levels
// can be reconfigured at runtime. Output fans out to stdout, the
// systemd journal when available, and an in-memory ring buffer that
// keeps recent history for the HTTP API.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultBufferSize = 1000

// Logger is a duck-typed interface satisfied by *slog.Logger. Consumers
// depend on it instead of the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mu            sync.RWMutex
	cfg           Config
	initialized   bool
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevels  = make(map[string]*slog.LevelVar)
	globalLevel   = &slog.LevelVar{}
	history       *RingBuffer
)

// Initialize sets up the logging system. Loggers created before this
// call are rebuilt so they pick up the configured handler chain.
func Initialize(config Config) {
	mu.Lock()
	defer mu.Unlock()

	cfg = config
	initialized = true
	history = NewRingBuffer(defaultBufferSize)
	globalLevel.Set(levelFor(config, ""))

	for module, lv := range moduleLevels {
		lv.Set(levelFor(config, module))
		moduleLoggers[module] = slog.New(buildHandler(config.Format, lv)).With("module", module)
	}

	slog.SetDefault(slog.New(buildHandler(config.Format, globalLevel)))
}

// GetLogger returns the logger for a module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	if logger, ok := moduleLoggers[module]; ok {
		mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	lv := &slog.LevelVar{}
	format := "text"
	if initialized {
		lv.Set(levelFor(cfg, module))
		format = cfg.Format
	} else {
		lv.Set(slog.LevelInfo)
	}

	logger := slog.New(buildHandler(format, lv)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevels[module] = lv
	return logger
}

// History returns the ring buffer of recent log entries, or nil before
// Initialize.
func History() *RingBuffer {
	mu.RLock()
	defer mu.RUnlock()
	return history
}

// levelFor resolves the effective level for a module: the module
// override when present, the global level otherwise, info as fallback.
func levelFor(config Config, module string) slog.Level {
	if module != "" {
		if s, ok := config.Modules[module]; ok {
			if l, ok := parseLevel(s); ok {
				return l
			}
		}
	}
	if l, ok := parseLevel(config.Level); ok {
		return l
	}
	return slog.LevelInfo
}

// buildHandler assembles the fan-out chain for one logger.
func buildHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	handlers := []slog.Handler{stdout}
	if journalAvailable() {
		handlers = append(handlers, newJournalHandler(level))
	}
	// The buffer handler checks for an attached buffer dynamically, so
	// it is always part of the chain.
	handlers = append(handlers, newBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return newMultiHandler(handlers...)
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
