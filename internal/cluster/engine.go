package cluster

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/clusterizer/internal/canon"
	"github.com/thebtf/clusterizer/pkg/models"
	"github.com/thebtf/clusterizer/pkg/similarity"
)

const (
	// ctxCheckInterval is how many queue pops run between cancellation checks.
	ctxCheckInterval = 1024

	// maxQueuePrealloc caps the initial heap allocation for large inputs.
	maxQueuePrealloc = 1 << 20
)

// Result is the best partition found by a run.
type Result struct {
	Clusters []models.Cluster
	Trace    []models.Level
	Stats    models.RunStats
	Score    float64
}

// Engine clusters records. It holds only configuration, so one Engine may serve
// concurrent Run calls.
type Engine struct {
	dist similarity.DistanceFunc
	opts Options
}

// New validates opts and returns an Engine. Zero-valued enum fields and a nil
// Canonicalize fall back to their defaults.
func New(opts Options) (*Engine, error) {
	if opts.Canonicalize == nil {
		opts.Canonicalize = canon.Key
	}
	if opts.Metric == "" {
		opts.Metric = similarity.MetricDice
	}
	if opts.Cohesion == "" {
		opts.Cohesion = CohesionMean
	}
	if opts.Collisions == "" {
		opts.Collisions = CollisionKeepAll
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	dist, err := opts.Metric.Func()
	if err != nil {
		return nil, err
	}
	return &Engine{dist: dist, opts: opts}, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// run is the state of a single Run call.
type run struct {
	dist  similarity.DistanceFunc
	ds    *dataset
	arena *arena
	queue *queue
	trace []models.Level
	opts  Options
	stats models.RunStats
}

// Run clusters records and returns the most cohesive partition seen while
// merging. An empty input yields an empty partition scored at the baseline.
func (e *Engine) Run(ctx context.Context, records []string) (*Result, error) {
	r := &run{dist: e.dist, opts: e.opts}
	r.ds = prepare(records, e.opts, &r.stats)

	k := len(r.ds.keys)
	log.Debug().
		Int("records", len(records)).
		Int("keys", k).
		Int("ngram", e.opts.ShingleLength).
		Msg("Starting agglomeration")

	if k == 0 {
		return &Result{Clusters: []models.Cluster{}, Stats: r.stats, Score: e.opts.BaselineScore}, nil
	}

	best, score, err := r.agglomerate(ctx)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("merges", r.stats.Merges).
		Int("stalePops", r.stats.StalePops).
		Int("clusters", len(best)).
		Float64("score", score).
		Msg("Agglomeration complete")

	return &Result{
		Clusters: r.materialize(best),
		Trace:    r.trace,
		Stats:    r.stats,
		Score:    score,
	}, nil
}

func (r *run) agglomerate(ctx context.Context) ([]int, float64, error) {
	k := len(r.ds.keys)
	r.arena = newArena(2 * k)
	for i := 0; i < k; i++ {
		r.arena.revive(r.arena.register([]int{i}, 0, r.opts.SingletonCohesion))
	}

	pairs := k * (k - 1) / 2
	r.stats.InitialPairs = pairs
	r.queue = newQueue(min(pairs, maxQueuePrealloc))
	for i := 0; i < k; i++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, fmt.Errorf("seed merge queue: %w", err)
		}
		for j := i + 1; j < k; j++ {
			r.push(i, j)
		}
	}

	best := r.arena.activeIDs()
	bestScore := r.opts.BaselineScore

	for r.queue.len() > 0 {
		if r.stats.Pops%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, fmt.Errorf("agglomerate: %w", err)
			}
		}

		c := r.queue.pop()
		r.stats.Pops++
		if !r.arena.alive(c.lo) || !r.arena.alive(c.hi) {
			r.stats.StalePops++
			continue
		}

		a, b := r.arena.get(c.lo), r.arena.get(c.hi)
		r.arena.kill(c.lo)
		r.arena.kill(c.hi)

		members := mergeMembers(a.members, b.members)
		if r.arena.registered(members) {
			// Already derived through another merge order: drop it without
			// re-adding it or queueing further work for it.
			r.stats.DuplicateMerges++
			log.Debug().Int("size", len(members)).Msg("Membership already registered, discarding merge")
			continue
		}

		pairSum := a.pairSum + b.pairSum + r.crossSum(a, b)
		// a and b are invalid past this point: register may grow the slot slice.
		merged := r.arena.register(members, pairSum, r.cohesion(len(members), pairSum))
		r.stats.Merges++

		active := r.arena.activeIDs()
		level := append(active, merged)
		score := r.levelScore(level)
		if r.opts.Trace {
			r.trace = append(r.trace, models.Level{
				Step:     r.stats.Merges,
				Distance: c.distance,
				Score:    score,
				Clusters: len(level),
			})
		}
		if score < bestScore {
			bestScore = score
			best = level
			r.stats.BestLevel = r.stats.Merges
		}

		for _, other := range active {
			r.push(merged, other)
		}
		r.arena.revive(merged)
	}

	return best, bestScore, nil
}

func (r *run) push(x, y int) {
	d := r.clusterDistance(r.arena.get(x), r.arena.get(y))
	r.queue.push(newCandidate(d, x, y))
	r.stats.Pushes++
}

// materialize converts slot ids into reported clusters ordered by their first key.
func (r *run) materialize(ids []int) []models.Cluster {
	slots := make([]*slot, len(ids))
	for i, id := range ids {
		slots[i] = r.arena.get(id)
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].members[0] < slots[j].members[0]
	})

	clusters := make([]models.Cluster, 0, len(slots))
	for _, s := range slots {
		c := models.Cluster{
			Keys:     make([]string, 0, len(s.members)),
			Members:  make([]string, 0, len(s.members)),
			Cohesion: s.cohesion,
			Size:     len(s.members),
		}
		for _, m := range s.members {
			c.Keys = append(c.Keys, r.ds.keys[m])
			c.Members = append(c.Members, r.ds.originals[m]...)
		}
		clusters = append(clusters, c)
	}
	return clusters
}
