package hermes_io

import (
	"context"
	"errors"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))
	return logs
}

func TestNewContextBindsLogger(t *testing.T) {
	logs := observe(t)

	rc := NewContext(context.Background(), "create env")
	require.NotNil(t, rc.Ctx)
	assert.Len(t, rc.TraceID, 8)

	otelzap.Ctx(rc.Ctx).Info("hello from a component")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "hello from a component", entry.Message)
	assert.Equal(t, "create env", entry.ContextMap()["command"])
	assert.Equal(t, rc.TraceID, entry.ContextMap()["trace_id"])
}

func TestEndLogsOutcome(t *testing.T) {
	logs := observe(t)

	rc := NewContext(context.Background(), "check deps")
	var err error
	rc.End(&err)
	assert.Equal(t, 1, logs.FilterMessage("Command completed").Len())

	rc = NewContext(context.Background(), "check deps")
	err = errors.New("nginx missing")
	rc.End(&err)
	assert.Equal(t, 1, logs.FilterMessage("Command failed").Len())
}

func TestHandlePanic(t *testing.T) {
	observe(t)
	rc := NewContext(context.Background(), "panic")

	run := func() (err error) {
		defer rc.HandlePanic(&err)
		panic("kaboom")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}
