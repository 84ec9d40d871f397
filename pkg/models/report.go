// Package models contains domain models for clusterizer.
package models

// Cluster is one group of the reported partition. Members lists every original
// record; Size counts canonical keys, so it is below len(Members) when records
// collide on a key.
type Cluster struct {
	Members  []string `json:"members"`
	Keys     []string `json:"keys"`
	Cohesion float64  `json:"cohesion"`
	Size     int      `json:"size"`
}

// RunStats counts what happened during one agglomeration run.
type RunStats struct {
	Records         int `json:"records"`
	Keys            int `json:"keys"`
	Collisions      int `json:"collisions"`
	ShortKeys       int `json:"short_keys"`
	InitialPairs    int `json:"initial_pairs"`
	Pushes          int `json:"pushes"`
	Pops            int `json:"pops"`
	StalePops       int `json:"stale_pops"`
	Merges          int `json:"merges"`
	DuplicateMerges int `json:"duplicate_merges"`
	BestLevel       int `json:"best_level"`
}

// Level describes the partition produced by one successful merge.
type Level struct {
	Step     int     `json:"step"`
	Distance float64 `json:"distance"`
	Score    float64 `json:"score"`
	Clusters int     `json:"clusters"`
}

// Report is the outward-facing result of a clustering run.
type Report struct {
	RunID      string    `json:"run_id"`
	Metric     string    `json:"metric"`
	Cohesion   string    `json:"cohesion"`
	Clusters   []Cluster `json:"clusters"`
	Trace      []Level   `json:"trace,omitempty"`
	Stats      RunStats  `json:"stats"`
	Score      float64   `json:"score"`
	Ngram      int       `json:"ngram"`
	DurationMs int64     `json:"duration_ms"`
}
