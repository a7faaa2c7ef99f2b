/* pkg/logger/fallback.go */

package logger

import (
	"fmt"
	"os"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewFallbackLogger logs to the console only.
func NewFallbackLogger() *zap.Logger {
	core := newTerminalConsoleCore(zapcore.NewCore(
		zapcore.NewConsoleEncoder(DefaultConsoleEncoderConfig()),
		zapcore.Lock(os.Stderr),
		ParseLogLevel(os.Getenv(shared.EnvLogLevel)),
	), os.Stdout)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// InitializeWithFallback tees console output with a JSON log file at the
// first writable platform path. Without a writable path it logs to the console only.
func InitializeWithFallback() {
	level := ParseLogLevel(os.Getenv(shared.EnvLogLevel))

	path, err := FindWritableLogPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "⚠️  No writable log path found. Logging to console only.")
		InitFallback()
		return
	}

	writer, err := GetLogFileWriter(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "⚠️  Could not open log file, logging to console only:", err)
		InitFallback()
		return
	}

	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewTee(
		newTerminalConsoleCore(zapcore.NewCore(
			zapcore.NewConsoleEncoder(DefaultConsoleEncoderConfig()),
			zapcore.Lock(os.Stderr),
			level,
		), os.Stdout),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), writer, zapcore.DebugLevel),
	)

	l := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	SetLogger(l)
	l.Debug("Logger initialized",
		zap.String("log_level", level.String()),
		zap.String("log_path", path),
	)
}

func DefaultConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "T"
	cfg.LevelKey = "L"
	cfg.NameKey = "N"
	cfg.CallerKey = ""
	cfg.MessageKey = "M"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg
}
