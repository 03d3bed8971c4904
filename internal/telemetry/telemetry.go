// Package telemetry holds the OpenTelemetry instruments shared by the
// server and the CLI. Without an installed SDK they are no-ops.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const scope = "github.com/Brownie44l1/sam-embed"

// Outcomes recorded on the requests counter.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups the instruments.
type Metrics struct {
	duration      metric.Float64Histogram
	requests      metric.Int64Counter
	downloadBytes metric.Int64Counter
}

// New creates instruments on the global meter provider.
func New() (*Metrics, error) {
	return NewWithMeter(otel.Meter(scope))
}

// NewWithMeter creates instruments on meter.
func NewWithMeter(meter metric.Meter) (*Metrics, error) {
	duration, err := meter.Float64Histogram("sam_embed.embedding.duration",
		metric.WithDescription("Time spent loading the model and computing one embedding"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	requests, err := meter.Int64Counter("sam_embed.embedding.requests",
		metric.WithDescription("Embedding computations by outcome"))
	if err != nil {
		return nil, err
	}
	downloadBytes, err := meter.Int64Counter("sam_embed.checkpoint.download.bytes",
		metric.WithDescription("Checkpoint bytes fetched from the remote URL"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	return &Metrics{duration: duration, requests: requests, downloadBytes: downloadBytes}, nil
}

// RecordEmbedding records one pipeline run.
func (m *Metrics) RecordEmbedding(ctx context.Context, modelType string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	attrs := metric.WithAttributes(
		attribute.String("model_type", modelType),
		attribute.String("outcome", outcome),
	)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	m.requests.Add(ctx, 1, attrs)
}

// RecordDownload adds n fetched checkpoint bytes.
func (m *Metrics) RecordDownload(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.downloadBytes.Add(ctx, n)
}
