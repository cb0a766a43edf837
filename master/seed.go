package master

import (
	"math/rand"

	"github.com/WatchJani/K-means/utils"
)

// Seeder : picks the k initial centroids among the dataset points
type Seeder interface {
	Seed(rng *rand.Rand, points utils.Points, k int) (utils.Points, error)
}

// NewSeeder returns the seeding policy registered under name ("" is uniform)
func NewSeeder(name string) (Seeder, error) {
	switch name {
	case "", SeedingUniform:
		return UniformSeeder{}, nil
	case SeedingPlusPlus:
		return PlusPlusSeeder{}, nil
	}
	return nil, utils.Configuration("unknown seeding policy %q", name)
}

// UniformSeeder : k points drawn uniformly, with replacement
type UniformSeeder struct{}

func (UniformSeeder) Seed(rng *rand.Rand, points utils.Points, k int) (utils.Points, error) {
	if err := checkSeedArgs(points, k); err != nil {
		return nil, err
	}
	centroids := make(utils.Points, k)
	for i := range centroids {
		centroids[i] = centroidOf(rng, points[rng.Intn(len(points))])
	}
	return centroids, nil
}

// PlusPlusSeeder : k-means++, the first point uniform, the next ones with probability proportional to
// the squared distance from the nearest centroid already chosen
type PlusPlusSeeder struct{}

func (PlusPlusSeeder) Seed(rng *rand.Rand, points utils.Points, k int) (utils.Points, error) {
	if err := checkSeedArgs(points, k); err != nil {
		return nil, err
	}
	centroids := make(utils.Points, 0, k)
	centroids = append(centroids, centroidOf(rng, points[rng.Intn(len(points))]))
	distances := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			_, d := utils.Nearest(centroids, p)
			distances[i] = d * d
			total += distances[i]
		}
		// every point sits on a centroid already
		if total == 0 {
			centroids = append(centroids, centroidOf(rng, points[rng.Intn(len(points))]))
			continue
		}
		target := rng.Float64() * total
		idx := len(points) - 1
		for i, d := range distances {
			target -= d
			if target < 0 {
				idx = i
				break
			}
		}
		centroids = append(centroids, centroidOf(rng, points[idx]))
	}
	return centroids, nil
}

// FixedSeeder : the points at the given indices, in order
type FixedSeeder struct {
	Indices []int
}

func (s FixedSeeder) Seed(rng *rand.Rand, points utils.Points, k int) (utils.Points, error) {
	if err := checkSeedArgs(points, k); err != nil {
		return nil, err
	}
	if len(s.Indices) != k {
		return nil, utils.Configuration("%d fixed seed(s) for k = %d", len(s.Indices), k)
	}
	centroids := make(utils.Points, k)
	for i, idx := range s.Indices {
		if idx < 0 || idx >= len(points) {
			return nil, utils.Configuration("seed index %d out of %d point(s)", idx, len(points))
		}
		centroids[i] = centroidOf(rng, points[idx])
	}
	return centroids, nil
}

func checkSeedArgs(points utils.Points, k int) error {
	if len(points) == 0 {
		return utils.Configuration("empty dataset")
	}
	if k <= 0 {
		return utils.Configuration("k must be positive, got %d", k)
	}
	return nil
}

func centroidOf(rng *rand.Rand, p utils.Point) utils.Point {
	return utils.NewCentroid(p.Lat, p.Lon, p.Weight, utils.RandomLabel(rng))
}
