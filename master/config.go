package master

import (
	"runtime"
	"time"

	"github.com/WatchJani/K-means/dataset"
	"github.com/WatchJani/K-means/utils"
)

// seeding policies selectable by name
const (
	SeedingUniform  = "uniform"
	SeedingPlusPlus = "plusplus"
)

const (
	defaultK              = 5
	defaultMaxIterations  = 100
	defaultRequestTimeout = 30 * time.Second
)

// Config : parameters of a clustering run
type Config struct {
	K              int           // number of clusters
	MaxIterations  int           // stop condition on number of iterations
	Epsilon        float64       // stop condition on per-feature centroid movement
	Parallelism    int           // local chunks per map pass (<= 0: one per CPU)
	Seed           int64         // seed of the generator used for the initial centroids
	Seeding        string        // SeedingUniform or SeedingPlusPlus
	Seeder         Seeder        // overrides Seeding when set
	TimeBudget     time.Duration // checked between iterations, 0 for none
	RequestTimeout time.Duration // bound of every remote exchange
}

// Defaults returns the configuration used when no option is given
func Defaults() Config {
	return Config{
		K:              defaultK,
		MaxIterations:  defaultMaxIterations,
		Epsilon:        utils.DefaultEpsilon,
		Parallelism:    runtime.NumCPU(),
		Seed:           dataset.DefaultSeed,
		Seeding:        SeedingUniform,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Validate reports the first invalid parameter as a configuration error
func (c Config) Validate() error {
	switch {
	case c.K <= 0:
		return utils.Configuration("k must be positive, got %d", c.K)
	case c.MaxIterations <= 0:
		return utils.Configuration("the maximum number of iterations must be positive, got %d", c.MaxIterations)
	case c.Epsilon <= 0:
		return utils.Configuration("epsilon must be positive, got %g", c.Epsilon)
	case c.TimeBudget < 0:
		return utils.Configuration("negative time budget %s", c.TimeBudget)
	case c.RequestTimeout < 0:
		return utils.Configuration("negative request timeout %s", c.RequestTimeout)
	}
	_, err := c.seeder()
	return err
}

func (c Config) seeder() (Seeder, error) {
	if c.Seeder != nil {
		return c.Seeder, nil
	}
	return NewSeeder(c.Seeding)
}

func (c Config) timeout() time.Duration {
	if c.RequestTimeout == 0 {
		return defaultRequestTimeout
	}
	return c.RequestTimeout
}
