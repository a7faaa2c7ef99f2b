// Package testutil provides shared helpers for hermes tests.
package testutil

import (
	"context"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap/zaptest"
)

// Context returns a context whose otelzap logger writes to the test log.
func Context(t *testing.T) context.Context {
	t.Helper()
	log := zaptest.NewLogger(t)
	logger.SetLogger(log)
	undo := otelzap.ReplaceGlobals(otelzap.New(log))
	t.Cleanup(undo)
	return context.Background()
}
