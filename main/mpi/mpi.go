package main

import (
	"context"
	"flag"
	"log"
	"os"
	"runtime"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/WatchJani/K-means/cli"
	"github.com/WatchJani/K-means/master"
	"github.com/WatchJani/K-means/transport"
	"github.com/WatchJani/K-means/worker"
)

/*------------------------------------------------------- MAIN -------------------------------------------------------*/
func main() {
	var cfg master.Config
	fs := flag.NewFlagSet("mpi", flag.ExitOnError)
	cli.BindConfig(fs, &cfg)
	data := cli.BindDataset(fs, &cfg.Seed)
	out := cli.BindOutput(fs)
	local := fs.Bool("local", false, "run every rank in this process")
	rank := fs.Int("rank", 0, "rank of this process (0 is the coordinator)")
	size := fs.Int("size", runtime.NumCPU()+1, "number of processes, coordinator included")
	url := fs.String("nats", nats.DefaultURL, "NATS server of the world")
	prefix := fs.String("prefix", "kmeans", "subject prefix of the world")
	_ = fs.Parse(os.Args[1:])

	ctx, stop := cli.SignalContext()
	defer stop()

	if *local {
		runLocal(ctx, cfg, data, out, *size)
		return
	}

	comm, err := transport.DialNats(*url, *prefix, *rank, *size, nats.Name("kmeans-rank"))
	cli.ErrorHandler(err, "nats")
	defer comm.Close()
	err = comm.Handshake(ctx)
	cli.ErrorHandler(err, "handshake")
	log.Printf("Rank %d/%d joined %s on %s", *rank, *size, *prefix, *url)

	if *rank != 0 {
		svc := worker.NewService(data.Source(), cfg.Parallelism)
		err = worker.RunRank(ctx, comm, svc)
		cli.ErrorHandler(err, "worker")
		return
	}
	coordinate(ctx, cfg, data, out, comm)
}

// runLocal spawns the worker ranks as goroutines over in-process mailboxes
func runLocal(ctx context.Context, cfg master.Config, data *cli.Dataset, out *cli.Output, size int) {
	if size < 2 {
		log.Fatalf("at least two ranks are required, got %d", size)
	}
	world := transport.NewLocalWorld(size)
	var wg sync.WaitGroup
	// each rank gets its own share of the CPUs
	parallelism := max(1, cfg.Parallelism/(size-1))
	for r := 1; r < size; r++ {
		wg.Add(1)
		go func(comm transport.Comm) {
			defer wg.Done()
			svc := worker.NewService(data.Source(), parallelism)
			if err := worker.RunRank(ctx, comm, svc); err != nil {
				log.Printf("--> rank %d failure: %v", comm.Rank(), err)
			}
		}(world[r])
	}
	coordinate(ctx, cfg, data, out, world[0])
	wg.Wait()
}

func coordinate(ctx context.Context, cfg master.Config, data *cli.Dataset, out *cli.Output, comm transport.Comm) {
	rt, err := transport.NewRankTransport(comm)
	cli.ErrorHandler(err, "rank transport")
	rankHandles := rt.Handles()
	handles := make([]master.WorkerHandle, len(rankHandles))
	for i, h := range rankHandles {
		handles[i] = h
	}

	coordinator, err := master.NewCoordinator(cfg, handles, master.WithBarrier(rt.Barrier), master.WithName("message-passing"))
	cli.ErrorHandler(err, "coordinator")

	points, err := data.Load()
	cli.ErrorHandler(err, "dataset loading")
	log.Printf("Clustering %d points in %d groups over %d worker rank(s).", len(points), cfg.K, len(handles))

	result, err := coordinator.Fit(ctx, points)
	coordinator.Shutdown(context.Background())
	cli.ErrorHandler(err, "k-means")

	cli.ShowResults(os.Stdout, result)
	err = out.Finish(ctx, result)
	cli.ErrorHandler(err, "output")
}
