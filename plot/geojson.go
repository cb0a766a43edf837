package plot

import (
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/WatchJani/K-means/utils"
)

// FeatureCollection exports the points and the centroids of a result as GeoJSON features,
// the cluster index of every point in its "cluster" property (-1 when unassigned)
func FeatureCollection(result utils.Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	clusters := make(map[string]int, len(result.Centroids))
	for i, c := range result.Centroids {
		if _, ok := clusters[c.Label]; !ok {
			clusters[c.Label] = i
		}
		f := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		f.Properties["kind"] = "centroid"
		f.Properties["cluster"] = i
		f.Properties["weight"] = c.Weight
		f.Properties["label"] = c.Label
		fc.Append(f)
	}
	for _, p := range result.Points {
		cluster, ok := clusters[p.Label]
		if !ok {
			cluster = -1
		}
		f := geojson.NewFeature(orb.Point{p.Lon, p.Lat})
		f.ID = p.Id
		f.Properties["kind"] = "point"
		f.Properties["cluster"] = cluster
		f.Properties["weight"] = p.Weight
		f.Properties["label"] = p.Label
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON writes the feature collection of a result to path
func WriteGeoJSON(path string, result utils.Result) error {
	data, err := FeatureCollection(result).MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
