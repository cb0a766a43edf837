package utils

import (
	"time"
)

/*---------------------------------------------------- PARTITIONS ----------------------------------------------------*/

// Partition : half-open range [Start, End) over the coordinator's ordered point sequence
type Partition struct {
	Start int
	End   int
}

// Len returns the number of points in the range
func (p Partition) Len() int {
	return p.End - p.Start
}

// Empty reports whether the range holds no point
func (p Partition) Empty() bool {
	return p.Start >= p.End
}

// Partitions splits [0, n) into 'workers' contiguous ranges of ceil(n / workers) points
// the trailing ranges may be empty when n does not fill every worker
func Partitions(n int, workers int) []Partition {
	if workers <= 0 {
		return nil
	}
	size := (n + workers - 1) / workers
	res := make([]Partition, workers)
	for i := 0; i < workers; i++ {
		start := min(i*size, n)
		end := min(start+size, n)
		res[i] = Partition{Start: start, End: end}
	}
	return res
}

/*---------------------------------------------------- K-MEANS -------------------------------------------------------*/

// Result : what a clustering run exposes to the visualization side
type Result struct {
	RunId      string        `json:"run_id"`
	Engine     string        `json:"engine"`
	Centroids  Points        `json:"centroids"`
	Points     Points        `json:"points"`
	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	Message    string        `json:"message"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Sizes returns the number of points labelled with each centroid's label
func (r Result) Sizes() []int {
	sizes := make([]int, len(r.Centroids))
	idx := make(map[string]int, len(r.Centroids))
	for i, c := range r.Centroids {
		if _, ok := idx[c.Label]; !ok {
			idx[c.Label] = i
		}
	}
	for _, p := range r.Points {
		if i, ok := idx[p.Label]; ok {
			sizes[i]++
		}
	}
	return sizes
}
