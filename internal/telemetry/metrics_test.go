package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/thebtf/clusterizer/pkg/models"
)

func TestMetrics_Record(t *testing.T) {
	m, err := NewWithMeter(noop.NewMeterProvider().Meter(ScopeName))
	require.NoError(t, err)

	report := &models.Report{
		Metric:   "dice",
		Cohesion: "mean",
		Ngram:    3,
		Score:    0.25,
		Stats:    models.RunStats{Records: 3, Merges: 2, StalePops: 2},
	}
	assert.NotPanics(t, func() {
		m.RecordRun(context.Background(), report, 15*time.Millisecond)
		m.RecordFailure(context.Background())
	})
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRun(context.Background(), &models.Report{}, time.Second)
		m.RecordFailure(context.Background())
	})
}

func TestNew_GlobalProvider(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	assert.NotNil(t, m)
}
