package cluster

import (
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/clusterizer/pkg/models"
	"github.com/thebtf/clusterizer/pkg/similarity"
)

// dataset is the validated boundary between raw records and the merge loop.
// Keys are indexed by first appearance, which is what makes runs reproducible.
type dataset struct {
	keys      []string
	originals [][]string
	shingles  []similarity.Set
	index     map[string]int
}

func prepare(records []string, opts Options, stats *models.RunStats) *dataset {
	ds := &dataset{index: make(map[string]int, len(records))}

	for _, record := range records {
		key := opts.Canonicalize(record)
		if i, ok := ds.index[key]; ok {
			stats.Collisions++
			log.Debug().
				Str("key", key).
				Str("record", record).
				Int("keyIndex", i).
				Msg("Canonical key collision")
			if opts.Collisions == CollisionLastWins {
				ds.originals[i] = []string{record}
			} else {
				ds.originals[i] = append(ds.originals[i], record)
			}
			continue
		}

		ds.index[key] = len(ds.keys)
		ds.keys = append(ds.keys, key)
		ds.originals = append(ds.originals, []string{record})

		if utf8.RuneCountInString(key) < opts.ShingleLength {
			stats.ShortKeys++
			log.Debug().
				Str("key", key).
				Int("ngram", opts.ShingleLength).
				Msg("Key shorter than shingle length, treated as dissimilar to everything")
		}
		ds.shingles = append(ds.shingles, similarity.Shingles(key, opts.ShingleLength))
	}

	stats.Records = len(records)
	stats.Keys = len(ds.keys)
	return ds
}
