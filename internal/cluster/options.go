// Package cluster implements greedy single-linkage agglomeration of text records
// over character shingles, keeping the most cohesive partition seen.
package cluster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thebtf/clusterizer/internal/canon"
	"github.com/thebtf/clusterizer/pkg/similarity"
)

const (
	// DefaultShingleLength is the n-gram length used when none is configured.
	DefaultShingleLength = 3

	// DefaultBaselineScore is the score a merge level must beat to replace
	// the all-singletons partition.
	DefaultBaselineScore = 0.5

	// DefaultSingletonCohesion is the cohesion assigned to clusters with fewer
	// than two members, which have no pairs to average.
	DefaultSingletonCohesion = 0.5
)

var (
	// ErrInvalidShingleLength is returned when the shingle length is not positive.
	ErrInvalidShingleLength = errors.New("shingle length must be positive")

	// ErrInvalidOption is returned for out-of-range engine options.
	ErrInvalidOption = errors.New("invalid cluster option")
)

// CohesionMode selects how per-cluster cohesion is averaged over a partition.
type CohesionMode string

const (
	// CohesionMean is the unweighted mean over clusters.
	CohesionMean CohesionMode = "mean"
	// CohesionWeighted weights each cluster by its number of keys.
	CohesionWeighted CohesionMode = "weighted"
)

// CollisionPolicy decides which original texts a canonical key reports.
type CollisionPolicy string

const (
	// CollisionKeepAll reports every original that mapped to a key, in input order.
	CollisionKeepAll CollisionPolicy = "keep-all"
	// CollisionLastWins reports only the last original seen for a key.
	CollisionLastWins CollisionPolicy = "last-wins"
)

// Canonicalizer maps a raw record to its identity key.
type Canonicalizer func(string) string

// Options configures an Engine.
type Options struct {
	Canonicalize      Canonicalizer
	Metric            similarity.Metric
	Cohesion          CohesionMode
	Collisions        CollisionPolicy
	ShingleLength     int
	BaselineScore     float64
	SingletonCohesion float64
	// Trace records one Level per successful merge in the Result.
	Trace bool
}

// DefaultOptions returns options matching the classic behaviour: trigram
// Dice distance, unweighted mean cohesion and 0.5 neutral constants.
func DefaultOptions() Options {
	return Options{
		Canonicalize:      canon.Key,
		Metric:            similarity.MetricDice,
		Cohesion:          CohesionMean,
		Collisions:        CollisionKeepAll,
		ShingleLength:     DefaultShingleLength,
		BaselineScore:     DefaultBaselineScore,
		SingletonCohesion: DefaultSingletonCohesion,
	}
}

// ParseCohesionMode resolves a cohesion mode name. The empty string selects CohesionMean.
func ParseCohesionMode(name string) (CohesionMode, error) {
	switch CohesionMode(strings.ToLower(strings.TrimSpace(name))) {
	case "", CohesionMean:
		return CohesionMean, nil
	case CohesionWeighted:
		return CohesionWeighted, nil
	default:
		return "", fmt.Errorf("%w: cohesion mode %q", ErrInvalidOption, name)
	}
}

// ParseCollisionPolicy resolves a collision policy name. The empty string selects CollisionKeepAll.
func ParseCollisionPolicy(name string) (CollisionPolicy, error) {
	switch CollisionPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", CollisionKeepAll:
		return CollisionKeepAll, nil
	case CollisionLastWins:
		return CollisionLastWins, nil
	default:
		return "", fmt.Errorf("%w: collision policy %q", ErrInvalidOption, name)
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.ShingleLength <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidShingleLength, o.ShingleLength)
	}
	if o.BaselineScore < 0 || o.BaselineScore > 1 {
		return fmt.Errorf("%w: baseline score %v outside [0,1]", ErrInvalidOption, o.BaselineScore)
	}
	if o.SingletonCohesion < 0 || o.SingletonCohesion > 1 {
		return fmt.Errorf("%w: singleton cohesion %v outside [0,1]", ErrInvalidOption, o.SingletonCohesion)
	}
	if _, err := ParseCohesionMode(string(o.Cohesion)); err != nil {
		return err
	}
	if _, err := ParseCollisionPolicy(string(o.Collisions)); err != nil {
		return err
	}
	if _, err := o.Metric.Func(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	return nil
}
