package plot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AvraamMavridis/randomcolor"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/WatchJani/K-means/utils"
)

const (
	scatterFile = "k-means_scatter.html"
	barFile     = "k-means_bar.html"
)

// Plotter : renders the charts of a clustering result in Dir
type Plotter struct {
	Dir string
}

// GenerateScatterPlot writes the lon/lat scatter plot of the clusters
func (p *Plotter) GenerateScatterPlot(result utils.Result) (string, error) {
	return p.generate(scatterFile, func(w io.Writer) error { return RenderScatter(w, result) })
}

// GenerateBarChart writes the bar chart of the cluster sizes
func (p *Plotter) GenerateBarChart(result utils.Result) (string, error) {
	return p.generate(barFile, func(w io.Writer) error { return RenderBar(w, result) })
}

func (p *Plotter) generate(name string, render func(w io.Writer) error) (string, error) {
	path := filepath.Join(p.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return path, err
	}
	defer f.Close()
	if err = render(f); err != nil {
		return path, err
	}
	return path, f.Close()
}

/*---------------------------------------------------- SCATTER -------------------------------------------------------*/

// RenderScatter renders one series per cluster plus the centroids series
func RenderScatter(w io.Writer, result utils.Result) error {
	es := charts.NewScatter()
	es.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Clustering - Scatter Plot", Subtitle: result.Message}),
		charts.WithLegendOpts(
			opts.Legend{
				Show: true,
				Top:  "5%",
			},
		),
		charts.WithToolboxOpts(opts.Toolbox{
			Show: true,
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
					Show:  true,
					Type:  "png",
					Title: "k-means_scatter",
				},
			},
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "lon", Scale: true}),
		charts.WithYAxisOpts(opts.YAxis{Name: "lat", Scale: true}),
		charts.WithDataZoomOpts(
			opts.DataZoom{
				Type:       "slider",
				XAxisIndex: 0,
			},
			opts.DataZoom{
				Type:       "slider",
				YAxisIndex: 0,
			},
			opts.DataZoom{
				Type:       "inside",
				XAxisIndex: 0,
			},
			opts.DataZoom{
				Type:       "inside",
				YAxisIndex: 0,
			},
		),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      true,
			Formatter: "{a}: {b}",
		}),
	)

	clusters := groupByCluster(result)
	colors := Colors(result.Centroids)
	var dataCentroids []opts.ScatterData
	for i, centroid := range result.Centroids {
		dataCentroids = append(dataCentroids, opts.ScatterData{
			Name:  fmt.Sprintf("%.4f, %.4f (%.1f)", centroid.Lat, centroid.Lon, centroid.Weight),
			Value: []float64{centroid.Lon, centroid.Lat},
		})

		data := make([]opts.ScatterData, 0, len(clusters[i]))
		for _, point := range clusters[i] {
			data = append(data, opts.ScatterData{
				Name:  point.Id,
				Value: []float64{point.Lon, point.Lat},
			})
		}
		name := fmt.Sprintf("Cluster %d", i)
		es.AddSeries(name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: colors[i]}))
	}

	es.AddSeries("Centroids", dataCentroids, charts.WithItemStyleOpts(opts.ItemStyle{Color: "black"}))

	return es.Render(w)
}

/*------------------------------------------------------ BAR ---------------------------------------------------------*/

// RenderBar renders the number of points of every cluster
func RenderBar(w io.Writer, result utils.Result) error {
	bar := charts.NewBar()
	// opts
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Clustering - Bar Chart"}),
		charts.WithToolboxOpts(opts.Toolbox{
			Show:  true,
			Right: "20%",
			Feature: &opts.ToolBoxFeature{
				SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
					Show:  true,
					Type:  "png",
					Title: "k-means_bar",
				},
				DataView: &opts.ToolBoxFeatureDataView{
					Show:  true,
					Title: "Data",
					Lang:  []string{"View", "Close", "Refresh"},
				},
			}},
		),
	)
	// create bars
	colors := Colors(result.Centroids)
	var items []opts.BarData
	var xAxis []string
	for i, size := range result.Sizes() {
		xAxis = append(xAxis, strconv.Itoa(i))
		items = append(items, opts.BarData{
			Name:      strconv.Itoa(i),
			Value:     size,
			ItemStyle: &opts.ItemStyle{Color: colors[i]},
		})
	}
	// draw chart
	bar.SetXAxis(xAxis).AddSeries("points", items).SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{
			Show:     true,
			Position: "top",
		}),
	)
	return bar.Render(w)
}

/*------------------------------------------------------ UTILS -------------------------------------------------------*/

// Colors returns one distinct color per centroid: its label when it is a valid and unused
// #RRGGBB color, a random one otherwise
func Colors(centroids utils.Points) []string {
	used := make(map[string]bool, len(centroids))
	res := make([]string, len(centroids))
	for i, c := range centroids {
		color := strings.ToUpper(c.Label)
		if !isHexColor(color) || used[color] {
			color = getNewColor(used)
		}
		used[color] = true
		res[i] = color
	}
	return res
}

func getNewColor(used map[string]bool) string {
	for {
		res := strings.ToUpper(randomcolor.GetRandomColorInHex())
		if !used[res] {
			return res
		}
	}
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	_, err := strconv.ParseUint(s[1:], 16, 32)
	return err == nil
}

// groupByCluster returns the points of each centroid, matched through the labels
func groupByCluster(result utils.Result) []utils.Points {
	res := make([]utils.Points, len(result.Centroids))
	idx := make(map[string]int, len(result.Centroids))
	for i, c := range result.Centroids {
		if _, ok := idx[c.Label]; !ok {
			idx[c.Label] = i
		}
	}
	for _, p := range result.Points {
		if i, ok := idx[p.Label]; ok {
			res[i] = append(res[i], p)
		}
	}
	return res
}
