package master

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WatchJani/K-means/utils"
)

func TestConfig(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.MaxIterations)
	assert.Equal(t, int64(12345), cfg.Seed)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, utils.DefaultEpsilon, cfg.Epsilon)

	for name, mutate := range map[string]func(c *Config){
		"k":          func(c *Config) { c.K = 0 },
		"iterations": func(c *Config) { c.MaxIterations = -1 },
		"epsilon":    func(c *Config) { c.Epsilon = 0 },
		"budget":     func(c *Config) { c.TimeBudget = -time.Second },
		"timeout":    func(c *Config) { c.RequestTimeout = -time.Second },
		"seeding":    func(c *Config) { c.Seeding = "random-walk" },
	} {
		c := Defaults()
		mutate(&c)
		assert.True(t, errors.Is(c.Validate(), utils.ErrConfiguration), name)
	}
}

func TestSeeders(t *testing.T) {
	points := utils.Points{
		{Lat: 0, Lon: 0, Weight: 1}, {Lat: 0, Lon: 0, Weight: 1}, {Lat: 0, Lon: 0, Weight: 1},
		{Lat: 10, Lon: 10, Weight: 5},
	}

	t.Run("uniform is reproducible", func(t *testing.T) {
		a, err := UniformSeeder{}.Seed(rand.New(rand.NewSource(1)), points, 3)
		require.NoError(t, err)
		b, err := UniformSeeder{}.Seed(rand.New(rand.NewSource(1)), points, 3)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		for _, c := range a {
			assert.Equal(t, utils.CentroidId, c.Id)
			assert.Regexp(t, `^#[0-9A-F]{6}$`, c.Label)
		}
	})

	t.Run("uniform samples with replacement", func(t *testing.T) {
		c, err := UniformSeeder{}.Seed(rand.New(rand.NewSource(1)), points, 10)
		require.NoError(t, err)
		assert.Len(t, c, 10)
	})

	t.Run("plusplus reaches the far point", func(t *testing.T) {
		for seed := int64(0); seed < 20; seed++ {
			c, err := PlusPlusSeeder{}.Seed(rand.New(rand.NewSource(seed)), points, 2)
			require.NoError(t, err)
			assert.NotEqual(t, c[0].Lat, c[1].Lat, "seed %d", seed)
		}
	})

	t.Run("plusplus with duplicated points", func(t *testing.T) {
		c, err := PlusPlusSeeder{}.Seed(rand.New(rand.NewSource(3)), points[:3], 3)
		require.NoError(t, err)
		assert.Len(t, c, 3)
	})

	t.Run("fixed", func(t *testing.T) {
		c, err := FixedSeeder{Indices: []int{3, 0}}.Seed(rand.New(rand.NewSource(1)), points, 2)
		require.NoError(t, err)
		assert.Equal(t, 10.0, c[0].Lat)
		assert.Equal(t, 0.0, c[1].Lat)

		_, err = FixedSeeder{Indices: []int{0}}.Seed(rand.New(rand.NewSource(1)), points, 2)
		assert.True(t, errors.Is(err, utils.ErrConfiguration))
		_, err = FixedSeeder{Indices: []int{0, 4}}.Seed(rand.New(rand.NewSource(1)), points, 2)
		assert.True(t, errors.Is(err, utils.ErrConfiguration))
	})

	t.Run("empty dataset", func(t *testing.T) {
		_, err := UniformSeeder{}.Seed(rand.New(rand.NewSource(1)), nil, 2)
		assert.True(t, errors.Is(err, utils.ErrConfiguration))
	})

	t.Run("by name", func(t *testing.T) {
		s, err := NewSeeder(SeedingPlusPlus)
		require.NoError(t, err)
		assert.IsType(t, PlusPlusSeeder{}, s)
		s, err = NewSeeder("")
		require.NoError(t, err)
		assert.IsType(t, UniformSeeder{}, s)
	})
}

func TestCollector(t *testing.T) {
	c := NewCollector(2)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Add([]utils.PartialAggregate{{SumLat: 1, Count: 1}, {SumWeight: 2, Count: 2}}))
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, c.Contributions())
	merged := c.Merged()
	assert.Equal(t, utils.PartialAggregate{SumLat: 100, Count: 100}, merged[0])
	assert.Equal(t, utils.PartialAggregate{SumWeight: 200, Count: 200}, merged[1])

	assert.True(t, errors.Is(c.Add([]utils.PartialAggregate{{}}), utils.ErrMalformedPayload))
	assert.Equal(t, 100, c.Contributions())
}
