// Package runner ties the clustering engine to run ids, logging and metrics.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/clusterizer/internal/cluster"
	"github.com/thebtf/clusterizer/internal/telemetry"
	"github.com/thebtf/clusterizer/pkg/models"
)

// Runner executes clustering runs. It is safe for concurrent use.
type Runner struct {
	metrics *telemetry.Metrics
	now     func() time.Time
}

// New creates a Runner. metrics may be nil.
func New(metrics *telemetry.Metrics) *Runner {
	return &Runner{metrics: metrics, now: time.Now}
}

// Run clusters records with opts and returns a report stamped with a fresh run id.
func (r *Runner) Run(ctx context.Context, records []string, opts cluster.Options) (*models.Report, error) {
	start := r.now()
	runID := uuid.NewString()

	engine, err := cluster.New(opts)
	if err != nil {
		r.metrics.RecordFailure(ctx)
		return nil, err
	}
	opts = engine.Options()

	res, err := engine.Run(ctx, records)
	if err != nil {
		r.metrics.RecordFailure(ctx)
		log.Warn().Err(err).Str("runId", runID).Msg("Clustering run failed")
		return nil, err
	}

	elapsed := r.now().Sub(start)
	report := &models.Report{
		RunID:      runID,
		Metric:     string(opts.Metric),
		Cohesion:   string(opts.Cohesion),
		Ngram:      opts.ShingleLength,
		Score:      res.Score,
		Clusters:   res.Clusters,
		Stats:      res.Stats,
		Trace:      res.Trace,
		DurationMs: elapsed.Milliseconds(),
	}

	log.Info().
		Str("runId", runID).
		Int("records", res.Stats.Records).
		Int("keys", res.Stats.Keys).
		Int("clusters", len(res.Clusters)).
		Float64("score", res.Score).
		Dur("elapsed", elapsed).
		Msg("Clustering complete")
	if res.Stats.Collisions > 0 {
		log.Info().
			Str("runId", runID).
			Int("collisions", res.Stats.Collisions).
			Str("policy", string(opts.Collisions)).
			Msg("Records collapsed onto shared canonical keys")
	}

	r.metrics.RecordRun(ctx, report, elapsed)
	return report, nil
}
