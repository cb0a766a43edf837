// Package dataset produces the weighted locations to cluster and persists the results of a run.
package dataset

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/WatchJani/K-means/utils"
)

// DefaultSeed is the seed of the synthetic fill when none is given
const DefaultSeed = 12345

// Germany is the region synthetic points are drawn from
var Germany = orb.Bound{Min: orb.Point{5.87, 47.27}, Max: orb.Point{15.04, 55.06}}

// weight range of synthetic points
const (
	minWeight = 1.0
	maxWeight = 1000.0
)

// Source : produces a fixed-size sequence of weighted points
type Source interface {
	Load(n int) (utils.Points, error)
}

/*---------------------------------------------------- FILE ----------------------------------------------------------*/

// FileSource : JSON array of locations {"name", "capacity", "la", "lo"}, padded with synthetic points
type FileSource struct {
	Path   string
	Seed   int64
	Region orb.Bound
}

// NewFileSource creates a source reading path and padding from the given seed over Germany
func NewFileSource(path string, seed int64) FileSource {
	return FileSource{Path: path, Seed: seed, Region: Germany}
}

// Load returns the first min(n, records) locations of the file followed by n - records synthetic points
func (s FileSource) Load(n int) (utils.Points, error) {
	if n <= 0 {
		return nil, utils.Configuration("dataset size must be positive, got %d", n)
	}
	// read file content
	points, err := readLocations(s.Path, n)
	if err != nil {
		return nil, err
	}
	utils.Debugf("--> read %d location(s) from %s", len(points), s.Path)
	// fill with synthetic points
	if len(points) < n {
		rng := rand.New(rand.NewSource(s.Seed))
		points = append(points, synthetic(rng, region(s.Region), len(points), n-len(points))...)
	}
	return points, nil
}

func readLocations(path string, n int) (utils.Points, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	df := dataframe.ReadJSON(file)
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "reading %s", path)
	}
	names := df.Col("name")
	capacities := df.Col("capacity")
	las := df.Col("la")
	los := df.Col("lo")
	for _, col := range []string{"name", "capacity", "la", "lo"} {
		if s := df.Col(col); s.Err != nil {
			return nil, errors.Wrapf(s.Err, "reading %s: column %q", path, col)
		}
	}

	ids := names.Records()
	weights := capacities.Float()
	lats := las.Float()
	lons := los.Float()

	dim := min(n, df.Nrow())
	points := make(utils.Points, dim)
	for i := 0; i < dim; i++ {
		points[i] = utils.Point{Id: ids[i], Weight: weights[i], Lat: lats[i], Lon: lons[i]}
	}
	return points, nil
}

/*--------------------------------------------------- SYNTHETIC ------------------------------------------------------*/

// RandomSource : only synthetic points
type RandomSource struct {
	Seed   int64
	Region orb.Bound
}

func (s RandomSource) Load(n int) (utils.Points, error) {
	if n <= 0 {
		return nil, utils.Configuration("dataset size must be positive, got %d", n)
	}
	rng := rand.New(rand.NewSource(s.Seed))
	return synthetic(rng, region(s.Region), 0, n), nil
}

func region(b orb.Bound) orb.Bound {
	if b.IsZero() {
		return Germany
	}
	return b
}

// synthetic draws 'count' points inside the region, numbering them from 'offset'
func synthetic(rng *rand.Rand, b orb.Bound, offset int, count int) utils.Points {
	points := make(utils.Points, count)
	for i := range points {
		points[i] = utils.Point{
			Id:     fmt.Sprintf("synthetic-%d", offset+i),
			Weight: minWeight + rng.Float64()*(maxWeight-minWeight),
			Lat:    b.Bottom() + rng.Float64()*(b.Top()-b.Bottom()),
			Lon:    b.Left() + rng.Float64()*(b.Right()-b.Left()),
		}
	}
	return points
}

/*----------------------------------------------------- SLICE --------------------------------------------------------*/

// SliceSource : points already in memory, every Load returns a fresh copy
type SliceSource utils.Points

func (s SliceSource) Load(n int) (utils.Points, error) {
	if n <= 0 || n > len(s) {
		return nil, utils.Configuration("cannot load %d point(s) out of %d", n, len(s))
	}
	return utils.Points(s[:n]).Copy(), nil
}
