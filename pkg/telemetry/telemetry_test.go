package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledUsesNoop(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, Init("hermes-test"))
	_, span := Start(context.Background(), "noop")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
}

func TestInitEnabledWritesSpans(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".hermes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".hermes", "telemetry_on"), nil, 0o644))

	require.NoError(t, Init("hermes-test"))
	_, span := Start(context.Background(), "create env")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, Shutdown(context.Background()))

	data, err := os.ReadFile(filepath.Join(home, ".hermes", "telemetry.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "create env")
}

func TestRecordCommandWithoutProvider(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordCommand(context.Background(), "nginx", 0, nil)
		RecordCommand(context.Background(), "mkcert", 0, assert.AnError)
	})
	assert.NotNil(t, instruments())
}
