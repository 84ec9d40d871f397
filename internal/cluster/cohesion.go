package cluster

// pairDistance is the memoised-shingle distance between two keys. A key is always
// at distance 0 from itself, whatever its shingles.
func (r *run) pairDistance(x, y int) float64 {
	if x == y {
		return 0
	}
	return r.dist(r.ds.shingles[x], r.ds.shingles[y])
}

// clusterDistance is the single-linkage distance: the closest member pair.
func (r *run) clusterDistance(a, b *slot) float64 {
	best := 1.0
	for _, x := range a.members {
		for _, y := range b.members {
			d := r.pairDistance(x, y)
			if d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}

// crossSum adds up distances over every pair spanning a and b. Together with the
// inputs' own pair sums it gives the merged cluster's pair sum without rescanning.
func (r *run) crossSum(a, b *slot) float64 {
	var sum float64
	for _, x := range a.members {
		for _, y := range b.members {
			sum += r.pairDistance(x, y)
		}
	}
	return sum
}

// cohesion is the mean pairwise distance within a cluster of the given size.
func (r *run) cohesion(size int, pairSum float64) float64 {
	if size < 2 {
		return r.opts.SingletonCohesion
	}
	pairs := float64(size*(size-1)) / 2
	return pairSum / pairs
}

// levelScore averages cohesion over a partition given as slot ids.
func (r *run) levelScore(ids []int) float64 {
	if len(ids) == 0 {
		return r.opts.BaselineScore
	}
	var sum, weight float64
	for _, id := range ids {
		s := r.arena.get(id)
		w := 1.0
		if r.opts.Cohesion == CohesionWeighted {
			w = float64(len(s.members))
		}
		sum += w * s.cohesion
		weight += w
	}
	return sum / weight
}
