// pkg/hermes_io/context.go

package hermes_io

import (
	"context"
	"os"
	"os/user"
	"runtime"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/hermes_err"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RuntimeContext carries the context, logger and span of one command invocation.
type RuntimeContext struct {
	Ctx        context.Context
	Log        *zap.Logger
	Timestamp  time.Time
	Span       trace.Span
	Command    string
	TraceID    string
	Attributes map[string]string
}

// NewContext starts the command span and installs the command logger as the
// otelzap global, so that otelzap.Ctx(rc.Ctx) logs with command and trace_id
// fields in every package.
func NewContext(parent context.Context, cmdName string) *RuntimeContext {
	ctx, span := telemetry.Start(parent, cmdName)
	traceID := logger.GenerateTraceID()

	base := logger.L().With(
		zap.String("command", cmdName),
		zap.String("trace_id", traceID),
	)
	otelzap.ReplaceGlobals(otelzap.New(base))

	return &RuntimeContext{
		Ctx:        ctx,
		Span:       span,
		Log:        base,
		Timestamp:  time.Now(),
		Command:    cmdName,
		TraceID:    traceID,
		Attributes: make(map[string]string),
	}
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("Panic recovered", zap.Any("panic", r))
	}
}

// End logs outcome, records key attributes on the command span, and flushes.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()

	var err error
	if errPtr != nil {
		err = *errPtr
	}
	duration := time.Since(rc.Timestamp)

	if err == nil {
		rc.Log.Info("Command completed", zap.Duration("duration", duration))
	} else {
		rc.Log.Error("Command failed",
			zap.Duration("duration", duration),
			zap.String("category", hermes_err.CategoryOf(err).String()),
			zap.Error(err))
		rc.Span.RecordError(err)
		rc.Span.SetStatus(codes.Error, err.Error())
	}

	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.String("os", runtime.GOOS),
		attribute.String("args", strings.Join(os.Args[1:], " ")),
		attribute.String("version", shared.Version),
	}
	for k, v := range rc.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	rc.Span.SetAttributes(attrs...)

	_ = logger.Sync()
}

// LogRuntimeExecutionContext records who is running hermes and with which privileges.
func LogRuntimeExecutionContext(rc *RuntimeContext) {
	log := otelzap.Ctx(rc.Ctx)

	currentUser, err := user.Current()
	if err != nil {
		log.Warn("Failed to get current user", zap.Error(err))
	} else {
		log.Debug("User + UID/GID context",
			zap.String("username", currentUser.Username),
			zap.String("uid", currentUser.Uid),
			zap.String("home", currentUser.HomeDir),
			zap.Int("effective_uid", os.Geteuid()),
			zap.String("sudo_user", os.Getenv(shared.EnvSudoUser)),
		)
	}

	if execPath, err := os.Executable(); err == nil {
		log.Debug("Executing binary", zap.String("path", execPath))
	}
}
