package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WatchJani/K-means/utils"
)

const locations = `[
	{"name": "Berlin", "capacity": 120, "la": 52.52, "lo": 13.405},
	{"name": "Munich", "capacity": 80, "la": 48.137, "lo": 11.575},
	{"name": "Hamburg", "capacity": 95.5, "la": 53.551, "lo": 9.993}
]`

func writeLocations(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locations.json")
	require.NoError(t, os.WriteFile(path, []byte(locations), 0o644))
	return path
}

func TestFileSource(t *testing.T) {
	path := writeLocations(t)

	t.Run("fewer points than records", func(t *testing.T) {
		points, err := NewFileSource(path, DefaultSeed).Load(2)
		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, utils.Point{Id: "Berlin", Weight: 120, Lat: 52.52, Lon: 13.405}, points[0])
		assert.Equal(t, "Munich", points[1].Id)
	})

	t.Run("padded with synthetic points", func(t *testing.T) {
		points, err := NewFileSource(path, DefaultSeed).Load(50)
		require.NoError(t, err)
		require.Len(t, points, 50)
		assert.Equal(t, "Hamburg", points[2].Id)
		assert.Equal(t, 95.5, points[2].Weight)
		assert.Equal(t, "synthetic-3", points[3].Id)
		assert.Equal(t, "synthetic-49", points[49].Id)
	})

	t.Run("same seed same dataset", func(t *testing.T) {
		a, err := NewFileSource(path, 7).Load(30)
		require.NoError(t, err)
		b, err := NewFileSource(path, 7).Load(30)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		c, err := NewFileSource(path, 8).Load(30)
		require.NoError(t, err)
		assert.NotEqual(t, a[10], c[10])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "none.json"), 1).Load(3)
		assert.Error(t, err)
	})

	t.Run("invalid size", func(t *testing.T) {
		_, err := NewFileSource(path, 1).Load(0)
		assert.Error(t, err)
	})
}

func TestRandomSource(t *testing.T) {
	points, err := RandomSource{Seed: DefaultSeed}.Load(1000)
	require.NoError(t, err)
	require.Len(t, points, 1000)
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Lat, 47.27)
		assert.LessOrEqual(t, p.Lat, 55.06)
		assert.GreaterOrEqual(t, p.Lon, 5.87)
		assert.LessOrEqual(t, p.Lon, 15.04)
		assert.GreaterOrEqual(t, p.Weight, 1.0)
		assert.Less(t, p.Weight, 1000.0)
		assert.Empty(t, p.Label)
	}
	assert.Equal(t, "synthetic-0", points[0].Id)

	again, err := RandomSource{Seed: DefaultSeed, Region: Germany}.Load(1000)
	require.NoError(t, err)
	assert.Equal(t, points, again)
}

func TestSliceSource(t *testing.T) {
	src := SliceSource{{Id: "a"}, {Id: "b"}}
	points, err := src.Load(2)
	require.NoError(t, err)
	points[0].Label = "x"
	assert.Empty(t, src[0].Label)

	_, err = src.Load(3)
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	result := utils.Result{
		RunId:     utils.NewRunId(),
		Centroids: utils.Points{utils.NewCentroid(50, 10, 100, "#123456")},
		Points: utils.Points{
			{Id: "a", Weight: 1, Lat: 50.1, Lon: 10.1, Label: "#123456"},
			{Id: "b", Weight: 3, Lat: 49.9, Lon: 9.9, Label: "#123456"},
		},
	}

	for _, compress := range []bool{false, true} {
		dir := filepath.Join(t.TempDir(), "snapshots")
		snap, err := SaveSnapshot(dir, result, compress)
		require.NoError(t, err)
		assert.Equal(t, SnapshotPaths(dir, result.RunId, compress), snap)
		if compress {
			assert.Equal(t, ".zst", filepath.Ext(snap.Points))
		} else {
			assert.Equal(t, ".json", filepath.Ext(snap.Points))
		}

		points, centroids, err := LoadSnapshot(snap)
		require.NoError(t, err)
		assert.Equal(t, result.Points, points)
		assert.Equal(t, result.Centroids, centroids)
	}

	t.Run("empty result", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.json")
		require.NoError(t, WritePoints(path, nil))
		points, err := ReadPoints(path)
		require.NoError(t, err)
		assert.Empty(t, points)
	})
}

func TestMissingFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadPoints(filepath.Join(dir, "missing-points.json.zst"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "failed to open file")

	_, err = NewFileSource(filepath.Join(dir, "missing.json"), DefaultSeed).Load(3)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
