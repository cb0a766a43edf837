package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WatchJani/K-means/utils"
)

func testResult() utils.Result {
	return utils.Result{
		RunId: "run",
		Centroids: utils.Points{
			utils.NewCentroid(50, 10, 1, "#aa0000"),
			utils.NewCentroid(52, 12, 1, "#AA0000"),
			utils.NewCentroid(54, 14, 1, ""),
		},
		Points: utils.Points{
			{Id: "a", Lat: 50, Lon: 10, Label: "#aa0000"},
			{Id: "b", Lat: 54, Lon: 14, Label: ""},
			{Id: "c", Lat: 49, Lon: 9, Label: "unknown"},
		},
	}
}

func TestColors(t *testing.T) {
	colors := Colors(testResult().Centroids)
	require.Len(t, colors, 3)
	assert.Equal(t, "#AA0000", colors[0])
	seen := map[string]bool{}
	for _, c := range colors {
		assert.True(t, isHexColor(c), c)
		assert.False(t, seen[c], "duplicated color %s", c)
		seen[c] = true
	}
}

func TestGroupByCluster(t *testing.T) {
	groups := groupByCluster(testResult())
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 1)
	assert.Empty(t, groups[1])
	assert.Len(t, groups[2], 1)
}

func TestGenerate(t *testing.T) {
	pl := &Plotter{Dir: t.TempDir()}

	path, err := pl.GenerateScatterPlot(testResult())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Clustering - Scatter Plot")

	path, err = pl.GenerateBarChart(testResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(pl.Dir, "k-means_bar.html"), path)

	var buf bytes.Buffer
	require.NoError(t, RenderBar(&buf, testResult()))
	assert.Contains(t, buf.String(), "Clustering - Bar Chart")
}

func TestGeoJSONExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.geojson")
	require.NoError(t, WriteGeoJSON(path, testResult()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 6)
	assert.Equal(t, orb.Point{14, 54}, fc.Features[2].Geometry)
	assert.Equal(t, "c", fc.Features[5].ID)
	assert.Equal(t, -1.0, fc.Features[5].Properties.MustFloat64("cluster"))
}
