package main

import (
	"flag"
	"log"
	"os"

	"github.com/WatchJani/K-means/cli"
	"github.com/WatchJani/K-means/master"
)

/*------------------------------------------------------- MAIN -------------------------------------------------------*/
func main() {
	var cfg master.Config
	fs := flag.NewFlagSet("client", flag.ExitOnError)
	cli.BindConfig(fs, &cfg)
	data := cli.BindDataset(fs, &cfg.Seed)
	out := cli.BindOutput(fs)
	engineName := fs.String("engine", "parallel", "local engine: sequential|parallel")
	_ = fs.Parse(os.Args[1:])

	ctx, stop := cli.SignalContext()
	defer stop()

	engine := newEngine(*engineName, cfg)

	// prepare request
	points, err := data.Load()
	cli.ErrorHandler(err, "dataset loading")
	log.Printf("Clustering %d points in %d groups with the %s engine.", len(points), cfg.K, engine.Name())

	// call the service
	result, err := engine.Fit(ctx, points)
	cli.ErrorHandler(err, "k-means")

	cli.ShowResults(os.Stdout, result)
	err = out.Finish(ctx, result)
	cli.ErrorHandler(err, "output")
}

func newEngine(name string, cfg master.Config) master.ClusterEngine {
	switch name {
	case "sequential":
		return master.NewSequential(cfg)
	case "parallel":
		return master.NewLocalParallel(cfg)
	}
	log.Fatalf("unknown engine %q (sequential|parallel)", name)
	return nil
}
