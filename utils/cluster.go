package utils

import (
	"math"
)

// DefaultEpsilon is the per-feature movement under which a centroid is considered unchanged
const DefaultEpsilon = 1e-6

// PartialAggregate : per-cluster sums produced from one chunk of points
type PartialAggregate struct {
	SumLat    float64
	SumLon    float64
	SumWeight float64
	Count     int
}

// Add accumulates a point into the aggregate
func (a *PartialAggregate) Add(p Point) {
	a.SumLat += p.Lat
	a.SumLon += p.Lon
	a.SumWeight += p.Weight
	a.Count++
}

// Merge accumulates another aggregate of the same cluster
func (a *PartialAggregate) Merge(b PartialAggregate) {
	a.SumLat += b.SumLat
	a.SumLon += b.SumLon
	a.SumWeight += b.SumWeight
	a.Count += b.Count
}

// Mean returns the centroid of the aggregated points; ok is false for an empty cluster
func (a PartialAggregate) Mean(label string) (Point, bool) {
	if a.Count == 0 {
		return NewCentroid(0, 0, 0, label), false
	}
	n := float64(a.Count)
	return NewCentroid(a.SumLat/n, a.SumLon/n, a.SumWeight/n, label), true
}

// FromMean rebuilds the sums of an aggregate sent as (mean, count)
func FromMean(mean Point, count int) PartialAggregate {
	n := float64(count)
	return PartialAggregate{
		SumLat:    mean.Lat * n,
		SumLon:    mean.Lon * n,
		SumWeight: mean.Weight * n,
		Count:     count,
	}
}

// Aggregate computes one partial aggregate per centroid for the given points, labelling them
func Aggregate(points Points, centroids Points) []PartialAggregate {
	res := make([]PartialAggregate, len(centroids))
	for i := range points {
		cid, _ := Nearest(centroids, points[i])
		points[i].Label = centroids[cid].Label
		res[cid].Add(points[i])
	}
	return res
}

// MergeAll sums a list of per-cluster aggregates into a single one per cluster
func MergeAll(k int, contributions [][]PartialAggregate) []PartialAggregate {
	res := make([]PartialAggregate, k)
	for _, c := range contributions {
		for cid := 0; cid < k && cid < len(c); cid++ {
			res[cid].Merge(c[cid])
		}
	}
	return res
}

// Reduce computes the new set of centroids from the merged aggregates of a round
// clusters that received no point keep their previous position
func Reduce(previous Points, merged []PartialAggregate) Points {
	newCentroids := make(Points, len(previous))
	for i, old := range previous {
		if i >= len(merged) {
			newCentroids[i] = old
			continue
		}
		centroid, ok := merged[i].Mean(old.Label)
		if !ok {
			centroid = old
		}
		newCentroids[i] = centroid
	}
	return newCentroids
}

// Unchanged reports whether a centroid moved less than eps along every feature
func Unchanged(a, b Point, eps float64) bool {
	return math.Abs(a.Lat-b.Lat) < eps &&
		math.Abs(a.Lon-b.Lon) < eps &&
		math.Abs(a.Weight-b.Weight) < eps
}

// Converged reports whether every centroid is unchanged between two consecutive iterations
func Converged(oldCentroids, newCentroids Points, eps float64) bool {
	if len(oldCentroids) != len(newCentroids) {
		return false
	}
	for i := range oldCentroids {
		if !Unchanged(oldCentroids[i], newCentroids[i], eps) {
			return false
		}
	}
	return true
}

// ComputeDelta returns the average distance the centroids moved in the latest iteration
func ComputeDelta(oldCentroids Points, newCentroids Points) float64 {
	dim := len(oldCentroids)
	if dim == 0 {
		return 0
	}
	delta := 0.0
	for i := 0; i < dim; i++ {
		delta += GetDistance(oldCentroids[i], newCentroids[i])
	}
	return delta / float64(dim)
}
