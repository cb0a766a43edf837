package master

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/WatchJani/K-means/mapreduce"
	"github.com/WatchJani/K-means/utils"
)

// WorkerHandle : a remote worker, whatever the transport
type WorkerHandle interface {
	Prepare(ctx context.Context, n int) error
	RequestAggregates(ctx context.Context, p utils.Partition, centroids utils.Points) ([]utils.PartialAggregate, error)
	RequestRelabeled(ctx context.Context, p utils.Partition, centroids utils.Points) (utils.Points, error)
	Terminate(ctx context.Context) error
	Close() error
}

// State : phase of the coordinator
type State int

const (
	Initializing State = iota
	Broadcasting
	Iterating
	Finalizing
	Done
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Broadcasting:
		return "broadcasting"
	case Iterating:
		return "iterating"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithBarrier sets the collective acknowledgment entered after the dataset broadcast
func WithBarrier(barrier func(ctx context.Context) error) Option {
	return func(c *Coordinator) {
		c.barrier = barrier
	}
}

// WithName overrides the engine name reported in the results
func WithName(name string) Option {
	return func(c *Coordinator) {
		c.name = name
	}
}

// Coordinator : distributed engine, every round is split among the workers
type Coordinator struct {
	Config  Config
	handles []WorkerHandle
	barrier func(ctx context.Context) error
	name    string
	mutex   sync.Mutex
	state   State
}

// NewCoordinator creates the distributed engine over the given workers
func NewCoordinator(cfg Config, handles []WorkerHandle, opts ...Option) (*Coordinator, error) {
	if len(handles) == 0 {
		return nil, utils.Configuration("no worker available")
	}
	c := &Coordinator{Config: cfg, handles: handles, name: "distributed"}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Coordinator) Name() string {
	return c.name
}

// State returns the current phase
func (c *Coordinator) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mutex.Lock()
	c.state = s
	c.mutex.Unlock()
	log.Printf("--> coordinator %s.", s)
}

// Fit clusters the points; the workers must load the same dataset on Prepare
func (c *Coordinator) Fit(ctx context.Context, points utils.Points) (utils.Result, error) {
	start := time.Now()
	c.setState(Initializing)
	points = points.Copy()
	centroids, err := initialize(c.Config, points)
	if err != nil {
		return utils.Result{}, err
	}

	c.setState(Broadcasting)
	if err = c.broadcast(ctx, len(points)); err != nil {
		return utils.Result{}, err
	}

	c.setState(Iterating)
	out, err := iterate(ctx, c.Config, centroids, func(ctx context.Context, centroids utils.Points) ([]utils.PartialAggregate, error) {
		return c.round(ctx, utils.Partitions(len(points), len(c.handles)), centroids)
	})
	if err != nil {
		return utils.Result{}, err
	}

	c.setState(Finalizing)
	c.relabel(ctx, utils.Partitions(len(points), len(c.handles)), points, out.centroids)

	c.setState(Done)
	return newResult(c.name, points, out, start), nil
}

// Shutdown terminates and releases every worker
func (c *Coordinator) Shutdown(ctx context.Context) {
	for _, h := range c.handles {
		rctx, cancel := context.WithTimeout(ctx, c.Config.timeout())
		if err := h.Terminate(rctx); err != nil {
			log.Printf("--> %v: terminate failure: %v", h, err)
		}
		cancel()
		if err := h.Close(); err != nil {
			log.Printf("--> %v: close failure: %v", h, err)
		}
	}
}

/*--------------------------------------------------- BROADCAST ------------------------------------------------------*/

// broadcast makes every worker load the dataset, then enters the transport barrier.
// Only a cancelled context stops the run: unprepared workers fail their rounds later
// and their partitions end up classified locally.
func (c *Coordinator) broadcast(ctx context.Context, n int) error {
	var (
		wg    sync.WaitGroup
		mutex sync.Mutex
		ready int
	)
	wg.Add(len(c.handles))
	for _, h := range c.handles {
		go func(h WorkerHandle) {
			defer wg.Done()
			rctx, cancel := context.WithTimeout(ctx, c.Config.timeout())
			defer cancel()
			if err := h.Prepare(rctx, n); err != nil {
				log.Printf("--> %v: prepare failure: %v", h, err)
				return
			}
			mutex.Lock()
			ready++
			mutex.Unlock()
		}(h)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	if ready == 0 {
		log.Printf("--> WARNING: no worker loaded the dataset, every round will be empty")
	}
	utils.Debugf("--> %d/%d worker(s) ready for %d point(s)", ready, len(c.handles), n)

	if c.barrier == nil {
		return nil
	}
	rctx, cancel := context.WithTimeout(ctx, c.Config.timeout())
	defer cancel()
	if err := c.barrier(rctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("--> WARNING: barrier failure: %v", utils.Transport(err, "barrier"))
	}
	return nil
}

/*------------------------------------------------------- MAP --------------------------------------------------------*/

// round dispatches one partition per worker and waits for the quorum of the dispatched requests
func (c *Coordinator) round(ctx context.Context, partitions []utils.Partition,
	centroids utils.Points) ([]utils.PartialAggregate, error) {
	collector := NewCollector(len(centroids))
	var wg sync.WaitGroup
	dispatched := 0
	for i, p := range partitions {
		if p.Empty() {
			continue
		}
		dispatched++
		wg.Add(1)
		go func(h WorkerHandle, p utils.Partition) {
			defer wg.Done()
			rctx, cancel := context.WithTimeout(ctx, c.Config.timeout())
			defer cancel()
			// workers get their own copy of the centroids
			partials, err := h.RequestAggregates(rctx, p, centroids.Copy())
			if err == nil {
				err = collector.Add(partials)
			}
			// a failed slot counts as satisfied with no contribution
			if err != nil {
				log.Printf("--> %v: map failure on [%d, %d): %v", h, p.Start, p.End, err)
			}
		}(c.handles[i], p)
	}
	wg.Wait()
	if collector.Contributions() == 0 {
		// every centroid is retained by the reduce
		log.Printf("--> WARNING: none of the %d dispatched worker(s) contributed", dispatched)
	}
	utils.Debugf("--> %d/%d contribution(s) collected", collector.Contributions(), dispatched)
	return collector.Merged(), nil
}

/*------------------------------------------------------ FINALIZE ----------------------------------------------------*/

// relabel asks every worker for its classified partition and splices it into the points;
// a partition whose worker failed is classified locally
func (c *Coordinator) relabel(ctx context.Context, partitions []utils.Partition, points utils.Points,
	centroids utils.Points) {
	var wg sync.WaitGroup
	for i, p := range partitions {
		if p.Empty() {
			continue
		}
		wg.Add(1)
		go func(h WorkerHandle, p utils.Partition) {
			defer wg.Done()
			rctx, cancel := context.WithTimeout(ctx, c.Config.timeout())
			defer cancel()
			relabeled, err := h.RequestRelabeled(rctx, p, centroids.Copy())
			if err == nil && len(relabeled) != p.Len() {
				err = utils.Malformed(nil, "expected %d point(s), got %d", p.Len(), len(relabeled))
			}
			if err != nil {
				log.Printf("--> %v: relabel failure on [%d, %d), classifying locally: %v", h, p.Start, p.End, err)
				mapreduce.New(1).Classify(points[p.Start:p.End], centroids)
				return
			}
			copy(points[p.Start:p.End], relabeled)
		}(c.handles[i], p)
	}
	wg.Wait()
}
