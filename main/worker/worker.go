package main

import (
	"flag"
	"log"
	"os"
	"runtime"

	"github.com/WatchJani/K-means/cli"
	"github.com/WatchJani/K-means/dataset"
	"github.com/WatchJani/K-means/worker"
)

const address = "localhost:11091"

/*------------------------------------------------------- MAIN -------------------------------------------------------*/
func main() {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	listen := fs.String("listen", address, "address the worker listens on")
	seed := fs.Int64("seed", dataset.DefaultSeed, "seed of the synthetic points, same as the coordinator")
	data := cli.BindSource(fs, seed)
	parallelism := fs.Int("parallelism", runtime.NumCPU(), "local map tasks per request")
	cli.BindDebug(fs)
	_ = fs.Parse(os.Args[1:])

	ctx, stop := cli.SignalContext()
	defer stop()

	svc := worker.NewService(data.Source(), *parallelism)
	srv := worker.NewServer(svc)
	err := srv.Listen(*listen)
	cli.ErrorHandler(err, "listen")

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	err = srv.Serve()
	cli.ErrorHandler(err, "serve")
	log.Print("Worker terminated.")
}
