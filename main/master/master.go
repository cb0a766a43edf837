package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/WatchJani/K-means/cli"
	"github.com/WatchJani/K-means/master"
	"github.com/WatchJani/K-means/transport"
)

const workers = "localhost:11091"

/*------------------------------------------------------- MAIN -------------------------------------------------------*/
func main() {
	var cfg master.Config
	fs := flag.NewFlagSet("master", flag.ExitOnError)
	cli.BindConfig(fs, &cfg)
	data := cli.BindDataset(fs, &cfg.Seed)
	out := cli.BindOutput(fs)
	addrs := fs.String("workers", workers, "comma-separated worker addresses")
	slots := fs.Int("slots", 0, "logical workers, assigned round-robin to the addresses (0: one per address)")
	terminate := fs.Bool("terminate", true, "terminate the workers after the run")
	_ = fs.Parse(os.Args[1:])

	ctx, stop := cli.SignalContext()
	defer stop()

	// connect to the workers
	client, err := transport.NewSocketClient(splitAddrs(*addrs))
	cli.ErrorHandler(err, "workers")
	socketHandles := client.Handles(*slots)
	handles := make([]master.WorkerHandle, len(socketHandles))
	for i, h := range socketHandles {
		handles[i] = h
	}
	log.Printf("Initialized %d logical worker(s) over %s", len(handles), *addrs)

	coordinator, err := master.NewCoordinator(cfg, handles, master.WithName("socket"))
	cli.ErrorHandler(err, "coordinator")

	// the coordinator loads the same dataset as the workers
	points, err := data.Load()
	cli.ErrorHandler(err, "dataset loading")
	log.Printf("Clustering %d points in %d groups.", len(points), cfg.K)

	result, err := coordinator.Fit(ctx, points)
	if *terminate {
		coordinator.Shutdown(context.Background())
	} else {
		closeAll(socketHandles)
	}
	cli.ErrorHandler(err, "k-means")

	cli.ShowResults(os.Stdout, result)
	err = out.Finish(ctx, result)
	cli.ErrorHandler(err, "output")
}

func splitAddrs(s string) []string {
	var res []string
	for _, addr := range strings.Split(s, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			res = append(res, addr)
		}
	}
	return res
}

func closeAll(handles []*transport.SocketHandle) {
	for _, h := range handles {
		if err := h.Close(); err != nil {
			log.Printf("--> %v: close failure: %v", h, err)
		}
	}
}
