// Package logging provides category-scoped zap loggers for pagesmith.
// Each subsystem asks for its logger by category name; until Init is called
// everything is a no-op so library consumers stay silent by default.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Categories used across the codebase. Free-form strings are accepted too;
// these constants just keep call sites consistent.
const (
	CategoryLoop        = "loop"
	CategoryGenerate    = "generate"
	CategoryRender      = "render"
	CategoryValidate    = "validate"
	CategoryReview      = "review"
	CategoryConstraints = "constraints"
	CategoryConfig      = "config"
)

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	loggers = make(map[string]*zap.Logger)
)

// Init installs the process-wide logger. debug enables development encoding
// and debug-level output; otherwise production JSON at info level.
func Init(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	base = logger
	loggers = make(map[string]*zap.Logger)
	return nil
}

// L returns the logger for a category, creating it on first use.
func L(category string) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := base.Named(category)
	loggers[category] = l
	return l
}

// Sync flushes buffered log entries. Safe to call at process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}
