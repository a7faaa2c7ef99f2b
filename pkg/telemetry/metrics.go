package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type commandMetrics struct {
	runs     metric.Int64Counter
	duration metric.Float64Histogram
}

var (
	metricsOnce sync.Once
	cmdMetrics  *commandMetrics
)

// instruments binds to the meter provider installed when the first
// external command runs.
func instruments() *commandMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter(shared.HermesID)
		m := &commandMetrics{}
		var err error
		if m.runs, err = meter.Int64Counter("hermes_external_commands_total",
			metric.WithDescription("External commands run, by command and outcome")); err != nil {
			return
		}
		if m.duration, err = meter.Float64Histogram("hermes_external_command_duration_seconds",
			metric.WithDescription("Wall time of external commands"),
			metric.WithUnit("s")); err != nil {
			return
		}
		cmdMetrics = m
	})
	return cmdMetrics
}

// RecordCommand counts one external command run and its duration.
func RecordCommand(ctx context.Context, command string, took time.Duration, err error) {
	m := instruments()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.Bool("success", err == nil),
	)
	m.runs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, took.Seconds(), attrs)
}
