package runner

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/clusterizer/internal/cluster"
	"github.com/thebtf/clusterizer/internal/telemetry"
)

func TestRunner_Run(t *testing.T) {
	metrics, err := telemetry.New()
	require.NoError(t, err)
	r := New(metrics)

	opts := cluster.DefaultOptions()
	opts.ShingleLength = 2
	opts.Trace = true

	report, err := r.Run(context.Background(), []string{"apple pie", "apple pi", "banana bread"}, opts)
	require.NoError(t, err)

	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "dice", report.Metric)
	assert.Equal(t, "mean", report.Cohesion)
	assert.Equal(t, 2, report.Ngram)
	assert.Len(t, report.Clusters, 2)
	assert.Len(t, report.Trace, 2)
	assert.Equal(t, 3, report.Stats.Records)
	assert.GreaterOrEqual(t, report.DurationMs, int64(0))
}

func TestRunner_DistinctRunIDs(t *testing.T) {
	r := New(nil)
	opts := cluster.DefaultOptions()

	a, err := r.Run(context.Background(), []string{"x"}, opts)
	require.NoError(t, err)
	b, err := r.Run(context.Background(), []string{"x"}, opts)
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunner_InvalidOptions(t *testing.T) {
	r := New(nil)
	opts := cluster.DefaultOptions()
	opts.ShingleLength = 0

	_, err := r.Run(context.Background(), []string{"x"}, opts)
	assert.ErrorIs(t, err, cluster.ErrInvalidShingleLength)
}
