// Package cli holds the flags and the result reporting shared by the binaries under main/.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/WatchJani/K-means/api"
	"github.com/WatchJani/K-means/dataset"
	"github.com/WatchJani/K-means/master"
	"github.com/WatchJani/K-means/plot"
	"github.com/WatchJani/K-means/utils"
)

/*----------------------------------------------------- FLAGS --------------------------------------------------------*/

// BindConfig registers the run parameters on fs, defaulting to master.Defaults
func BindConfig(fs *flag.FlagSet, cfg *master.Config) {
	*cfg = master.Defaults()
	fs.IntVar(&cfg.K, "k", cfg.K, "number of clusters")
	fs.IntVar(&cfg.MaxIterations, "iterations", cfg.MaxIterations, "maximum number of iterations")
	fs.Float64Var(&cfg.Epsilon, "epsilon", cfg.Epsilon, "per-feature movement under which a centroid is unchanged")
	fs.IntVar(&cfg.Parallelism, "parallelism", cfg.Parallelism, "local map tasks per pass")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed of the initial centroids and of the synthetic points")
	fs.StringVar(&cfg.Seeding, "seeding", cfg.Seeding, "seeding policy: uniform|plusplus")
	fs.DurationVar(&cfg.TimeBudget, "budget", cfg.TimeBudget, "time budget checked between iterations (0: none)")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "timeout of every remote exchange")
}

// Dataset : where the points come from
type Dataset struct {
	N    int
	Path string
	Seed *int64
}

// BindDataset registers -n and -data; the synthetic fill uses the seed of the run
func BindDataset(fs *flag.FlagSet, seed *int64) *Dataset {
	d := BindSource(fs, seed)
	fs.IntVar(&d.N, "n", 1000, "number of points")
	return d
}

// BindSource registers -data only, the size being decided by someone else
func BindSource(fs *flag.FlagSet, seed *int64) *Dataset {
	d := &Dataset{Seed: seed}
	fs.StringVar(&d.Path, "data", "", "JSON array of locations {name, capacity, la, lo} (empty: synthetic only)")
	return d
}

// Source returns the dataset source selected by the flags
func (d *Dataset) Source() dataset.Source {
	if d.Path == "" {
		return dataset.RandomSource{Seed: *d.Seed, Region: dataset.Germany}
	}
	return dataset.NewFileSource(d.Path, *d.Seed)
}

// Load reads the N points of the dataset
func (d *Dataset) Load() (utils.Points, error) {
	return d.Source().Load(d.N)
}

// Output : what happens to a result once the run is over
type Output struct {
	Dir      string
	Plot     bool
	Compress bool
	GeoJSON  bool
	HTTP     string
}

// BindOutput registers the output flags and -debug
func BindOutput(fs *flag.FlagSet) *Output {
	o := &Output{}
	fs.StringVar(&o.Dir, "out", "", "directory of the snapshot files (empty: no snapshot)")
	fs.BoolVar(&o.Compress, "compress", false, "zstd-compress the snapshot files")
	fs.BoolVar(&o.GeoJSON, "geojson", false, "also export the result as GeoJSON in -out")
	fs.BoolVar(&o.Plot, "plot", false, "render the scatter plot and the bar chart")
	fs.StringVar(&o.HTTP, "http", "", "serve the result on this address after the run")
	BindDebug(fs)
	return o
}

// BindDebug registers -debug
func BindDebug(fs *flag.FlagSet) {
	fs.BoolVar(&utils.Debug, "debug", false, "activate the debug log")
}

/*---------------------------------------------------- RESULTS -------------------------------------------------------*/

// ShowResults prints the outcome of a run
func ShowResults(w io.Writer, result utils.Result) {
	fmt.Fprintln(w, "\n---------------------------------------- K-Means results --------------------------------------")
	fmt.Fprintf(w, "INFO: %s.\n", result.Message)
	fmt.Fprintf(w, "Run %s (%s engine), %d iteration(s), converged: %t.\n\n",
		result.RunId, result.Engine, result.Iterations, result.Converged)
	sizes := result.Sizes()
	for i, c := range result.Centroids {
		fmt.Fprintf(w, "Cluster %d (%s) has %d points, centroid lat %.5f lon %.5f weight %.3f.\n",
			i, c.Label, sizes[i], c.Lat, c.Lon, c.Weight)
	}
	fmt.Fprintf(w, "\nTime elapsed: %v.\n", result.Elapsed)
}

// Finish writes the snapshot, the charts and the GeoJSON export requested by the flags, then serves
// the result over HTTP until ctx is done
func (o *Output) Finish(ctx context.Context, result utils.Result) error {
	if o.Dir != "" {
		snap, err := dataset.SaveSnapshot(o.Dir, result, o.Compress)
		if err != nil {
			return err
		}
		log.Printf("Snapshot written to %s and %s", snap.Points, snap.Centroids)
		if o.GeoJSON {
			path := filepath.Join(o.Dir, result.RunId+".geojson")
			if err = plot.WriteGeoJSON(path, result); err != nil {
				return err
			}
			log.Printf("GeoJSON written to %s", path)
		}
	}
	if o.Plot {
		if err := plotResults(o.Dir, result); err != nil {
			return err
		}
	}
	if o.HTTP == "" {
		return nil
	}
	srv := api.NewServer()
	srv.Publish(result)
	return srv.ListenAndServe(ctx, o.HTTP)
}

func plotResults(dir string, result utils.Result) error {
	pl := &plot.Plotter{Dir: dir}

	path, err := pl.GenerateBarChart(result)
	if err != nil {
		return err
	}
	log.Printf("Bar chart written to %s", path)

	path, err = pl.GenerateScatterPlot(result)
	if err != nil {
		return err
	}
	log.Printf("Scatter plot written to %s", path)
	return nil
}

/*----------------------------------------------------- UTILS --------------------------------------------------------*/

// SignalContext is cancelled on SIGINT or SIGTERM
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ErrorHandler exits on err, naming the point of failure
func ErrorHandler(err error, pof string) {
	if err != nil {
		log.Fatalf("%s failure: %v", pof, err)
	}
}
