package utils

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// CentroidId is the id every centroid carries on the wire
const CentroidId = "Centroid"

// Point : represents a weighted location
// --> lat, lon and weight are the clustering features
// --> label is the color of the cluster the point was last assigned to (visualization only)
type Point struct {
	Id     string  `json:"id"`
	Weight float64 `json:"weight"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Label  string  `json:"label"`
}
type Points []Point

// NewCentroid builds a centroid at the given feature position
func NewCentroid(lat, lon, weight float64, label string) Point {
	return Point{Id: CentroidId, Weight: weight, Lat: lat, Lon: lon, Label: label}
}

// Features returns the feature vector used by every distance comparison
func (p Point) Features() []float64 {
	return []float64{p.Lat, p.Lon, p.Weight}
}

// Copy returns an independent copy of the set of points
func (ps Points) Copy() Points {
	res := make(Points, len(ps))
	copy(res, ps)
	return res
}

// GetDistance returns the euclidean distance between two points in the (lat, lon, weight) space
func GetDistance(p1 Point, p2 Point) float64 {
	return floats.Distance(p1.Features(), p2.Features(), 2)
}

// Nearest returns the index of the centroid nearest to point and its distance, lowest index on ties
func Nearest(centroids Points, point Point) (int, float64) {
	var (
		idx  int
		dist float64
	)
	for i, centroid := range centroids {
		d := GetDistance(point, centroid)
		if i == 0 || d < dist {
			dist = d
			idx = i
		}
	}
	return idx, dist
}

// RandomLabel draws a #RRGGBB color from the given generator
func RandomLabel(rng *rand.Rand) string {
	return fmt.Sprintf("#%02X%02X%02X", rng.Intn(256), rng.Intn(256), rng.Intn(256))
}

// GetAvgDistanceOfSet returns the average pairwise distance inside a set of points
func GetAvgDistanceOfSet(points Points) float64 {
	if len(points) < 2 {
		return 0
	}
	var (
		d float64
		l int
	)
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			d += GetDistance(points[i], points[j])
			l++
		}
	}
	return d / float64(l)
}
