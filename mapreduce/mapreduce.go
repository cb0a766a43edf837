// Package mapreduce implements the local assign-then-aggregate pass shared by the parallel engine and
// by every remote worker: points are split in contiguous chunks, each chunk is classified and combined
// by its own goroutine, and the caller blocks until every spawned task is done.
package mapreduce

import (
	"runtime"
	"sync"

	"github.com/WatchJani/K-means/utils"
)

// Engine : local reduction engine, one per process
type Engine struct {
	Parallelism int // number of chunks the points are split into
}

// New creates an engine; a parallelism <= 0 means one chunk per available CPU
func New(parallelism int) *Engine {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return &Engine{Parallelism: parallelism}
}

/*------------------------------------------------------- MAP --------------------------------------------------------*/

// Map performs one assignment + aggregation pass and returns the partial aggregates indexed by
// [slot][cluster]; only non-empty chunks get a slot
func (e *Engine) Map(points utils.Points, centroids utils.Points) [][]utils.PartialAggregate {
	chunks := Chunks(len(points), e.Parallelism)
	results := make([][]utils.PartialAggregate, len(chunks))
	if len(chunks) == 0 {
		return results
	}
	// one task per non-empty chunk: the join is sized on the spawned tasks
	var wg sync.WaitGroup
	wg.Add(len(chunks))
	for slot, chunk := range chunks {
		go func(slot int, chunk utils.Partition) {
			defer wg.Done()
			// chunks are disjoint: every task writes labels and aggregates of its own range only
			results[slot] = utils.Aggregate(points[chunk.Start:chunk.End], centroids)
		}(slot, chunk)
	}
	wg.Wait()
	utils.Debugf("--> map: %d point(s) classified by %d task(s)", len(points), len(chunks))
	return results
}

/*------------------------------------------------------ COMBINE -----------------------------------------------------*/

// Combine merges the slots of a map output into one aggregate per cluster
func Combine(k int, partials [][]utils.PartialAggregate) []utils.PartialAggregate {
	return utils.MergeAll(k, partials)
}

// Run performs Map and Combine: from the caller's perspective the engine is a single responder
func (e *Engine) Run(points utils.Points, centroids utils.Points) []utils.PartialAggregate {
	return Combine(len(centroids), e.Map(points, centroids))
}

// Classify only assigns the points to their nearest centroid, discarding the aggregates
func (e *Engine) Classify(points utils.Points, centroids utils.Points) {
	e.Map(points, centroids)
}

/*------------------------------------------------------ UTILS -------------------------------------------------------*/

// Chunks splits [0, n) into at most 'parallelism' contiguous ranges of ceil(n / parallelism) points,
// dropping the empty trailing ones
func Chunks(n int, parallelism int) []utils.Partition {
	var res []utils.Partition
	for _, p := range utils.Partitions(n, parallelism) {
		if p.Empty() {
			break
		}
		res = append(res, p)
	}
	return res
}
