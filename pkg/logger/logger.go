// pkg/logger/logger.go

package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log *zap.Logger
	mu  sync.RWMutex
)

// L returns the process logger, building a console fallback on first use.
func L() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		return l
	}
	InitFallback()
	return L()
}

// SetLogger installs l as the process logger and zap global.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
	zap.ReplaceGlobals(l)
}

// InitFallback installs a console-only logger.
func InitFallback() {
	SetLogger(NewFallbackLogger())
}

// ParseLogLevel maps LOG_LEVEL values onto zap levels.
func ParseLogLevel(level string) zapcore.Level {
	switch level {
	case "TRACE", "DEBUG", "debug":
		return zapcore.DebugLevel
	case "WARN", "warn":
		return zapcore.WarnLevel
	case "ERROR", "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes any buffered log entries. Should be called before the application exits.
// Errors from syncing stdout/stderr on some platforms are ignored.
func Sync() error {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l == nil {
		return nil
	}
	if err := l.Sync(); err != nil && !isIgnorableSyncError(err) {
		return err
	}
	return nil
}

func isIgnorableSyncError(err error) bool {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Path == "/dev/stdout" || pe.Path == "/dev/stderr"
	}
	return false
}
