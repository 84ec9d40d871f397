// Package similarity provides text similarity and clustering utilities.
package similarity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMetric is returned when a metric name is not recognised.
var ErrUnknownMetric = errors.New("unknown distance metric")

// Metric names a pairwise distance between shingle sets.
type Metric string

const (
	// MetricDice is 1 - 2|A∩B|/(|A|+|B|).
	MetricDice Metric = "dice"
	// MetricJaccard is 1 - |A∩B|/|A∪B|.
	MetricJaccard Metric = "jaccard"
)

// DistanceFunc returns a dissimilarity in [0,1] between two shingle sets.
type DistanceFunc func(a, b Set) float64

// ParseMetric resolves a metric name. The empty string selects Dice.
func ParseMetric(name string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(name))) {
	case "", MetricDice:
		return MetricDice, nil
	case MetricJaccard:
		return MetricJaccard, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// Func returns the distance function for the metric.
func (m Metric) Func() (DistanceFunc, error) {
	switch m {
	case "", MetricDice:
		return DiceDistance, nil
	case MetricJaccard:
		return JaccardDistance, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, string(m))
	}
}

// DiceDistance calculates the Dice dissimilarity between two shingle sets.
// Returns 0 for identical nonempty sets and 1 when nothing is shared.
// Two empty sets have no shingles in common and are treated as maximally
// dissimilar (1), so keys shorter than the shingle length never attract each other.
func DiceDistance(a, b Set) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}
	return 1.0 - 2.0*float64(intersection(a, b))/float64(total)
}

// JaccardSimilarity calculates the Jaccard similarity between two shingle sets.
// Returns a value between 0 (no overlap) and 1 (identical).
func JaccardSimilarity(set1, set2 Set) float64 {
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	common := intersection(set1, set2)
	union := len(set1) + len(set2) - common
	if union == 0 {
		return 0.0
	}

	return float64(common) / float64(union)
}

// JaccardDistance is 1 - JaccardSimilarity, with the same empty-set policy as DiceDistance.
func JaccardDistance(a, b Set) float64 {
	return 1.0 - JaccardSimilarity(a, b)
}
