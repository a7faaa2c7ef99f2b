// pkg/logger/writer.go

package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	"go.uber.org/zap/zapcore"
)

// GetLogFileWriter opens path for appending, creating the directory with owner-only permissions.
func GetLogFileWriter(path string) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(path), shared.FilePermOwnerRWX); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, shared.FilePermOwnerReadWrite)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return zapcore.AddSync(file), nil
}

// FindWritableLogPath returns the first usable path from PlatformLogPaths.
func FindWritableLogPath() (string, error) {
	return firstWritable(PlatformLogPaths())
}

func firstWritable(paths []string) (string, error) {
	for _, path := range paths {
		if err := os.MkdirAll(filepath.Dir(path), shared.FilePermOwnerRWX); err != nil {
			continue
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, shared.FilePermOwnerReadWrite)
		if err != nil {
			continue
		}
		_ = f.Close()
		return path, nil
	}
	return "", fmt.Errorf("no writable log path found")
}
