// Package telemetry records clustering run metrics through OpenTelemetry.
// Without an SDK meter provider installed the instruments are no-ops.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/thebtf/clusterizer/pkg/models"
)

// ScopeName is the instrumentation scope for every instrument.
const ScopeName = "github.com/thebtf/clusterizer"

// Metrics holds the instruments for clustering runs.
type Metrics struct {
	runs      metric.Int64Counter
	failures  metric.Int64Counter
	records   metric.Int64Counter
	merges    metric.Int64Counter
	stalePops metric.Int64Counter
	duration  metric.Float64Histogram
	score     metric.Float64Histogram
}

// New builds instruments from the global meter provider.
func New() (*Metrics, error) {
	return NewWithMeter(otel.Meter(ScopeName))
}

// NewWithMeter builds instruments from meter.
func NewWithMeter(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.runs, err = meter.Int64Counter("clusterizer.runs",
		metric.WithDescription("Completed clustering runs")); err != nil {
		return nil, fmt.Errorf("create runs counter: %w", err)
	}
	if m.failures, err = meter.Int64Counter("clusterizer.run_failures",
		metric.WithDescription("Clustering runs that returned an error")); err != nil {
		return nil, fmt.Errorf("create failures counter: %w", err)
	}
	if m.records, err = meter.Int64Counter("clusterizer.records",
		metric.WithDescription("Records clustered")); err != nil {
		return nil, fmt.Errorf("create records counter: %w", err)
	}
	if m.merges, err = meter.Int64Counter("clusterizer.merges",
		metric.WithDescription("Successful cluster merges")); err != nil {
		return nil, fmt.Errorf("create merges counter: %w", err)
	}
	if m.stalePops, err = meter.Int64Counter("clusterizer.stale_pops",
		metric.WithDescription("Queue entries discarded because a side was already merged")); err != nil {
		return nil, fmt.Errorf("create stale pops counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("clusterizer.run.duration",
		metric.WithDescription("Clustering run duration"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	if m.score, err = meter.Float64Histogram("clusterizer.run.score",
		metric.WithDescription("Best partition cohesion score")); err != nil {
		return nil, fmt.Errorf("create score histogram: %w", err)
	}
	return &m, nil
}

// RecordRun records a successful run.
func (m *Metrics) RecordRun(ctx context.Context, r *models.Report, elapsed time.Duration) {
	if m == nil || r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("metric", r.Metric),
		attribute.String("cohesion", r.Cohesion),
		attribute.Int("ngram", r.Ngram),
	)
	m.runs.Add(ctx, 1, attrs)
	m.records.Add(ctx, int64(r.Stats.Records), attrs)
	m.merges.Add(ctx, int64(r.Stats.Merges), attrs)
	m.stalePops.Add(ctx, int64(r.Stats.StalePops), attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	m.score.Record(ctx, r.Score, attrs)
}

// RecordFailure records a run that returned an error.
func (m *Metrics) RecordFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1)
}
