// Package master drives a k-means run: seeding, the iteration loop with its stop conditions and the
// final classification, over a local engine or over remote workers.
package master

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/WatchJani/K-means/mapreduce"
	"github.com/WatchJani/K-means/utils"
)

// ClusterEngine : one way of computing a clustering
type ClusterEngine interface {
	Name() string
	Fit(ctx context.Context, points utils.Points) (utils.Result, error)
}

// round computes the merged aggregates of one iteration for the given centroids
type round func(ctx context.Context, centroids utils.Points) ([]utils.PartialAggregate, error)

type outcome struct {
	centroids  utils.Points
	iterations int
	converged  bool
	message    string
}

/*---------------------------------------------------- LOCAL ---------------------------------------------------------*/

// Sequential : single-threaded baseline
type Sequential struct {
	Config Config
}

// NewSequential creates the single-threaded engine
func NewSequential(cfg Config) *Sequential {
	return &Sequential{Config: cfg}
}

func (s *Sequential) Name() string {
	return "sequential"
}

func (s *Sequential) Fit(ctx context.Context, points utils.Points) (utils.Result, error) {
	return fitLocal(ctx, s.Config, s.Name(), points, utils.Aggregate)
}

// LocalParallel : map-reduce over the local CPUs
type LocalParallel struct {
	Config Config
	engine *mapreduce.Engine
}

// NewLocalParallel creates the multi-threaded engine, split in Config.Parallelism chunks
func NewLocalParallel(cfg Config) *LocalParallel {
	return &LocalParallel{Config: cfg, engine: mapreduce.New(cfg.Parallelism)}
}

func (p *LocalParallel) Name() string {
	return "parallel"
}

func (p *LocalParallel) Fit(ctx context.Context, points utils.Points) (utils.Result, error) {
	return fitLocal(ctx, p.Config, p.Name(), points, p.engine.Run)
}

func fitLocal(ctx context.Context, cfg Config, name string, points utils.Points,
	pass func(points, centroids utils.Points) []utils.PartialAggregate) (utils.Result, error) {
	start := time.Now()
	points = points.Copy()
	centroids, err := initialize(cfg, points)
	if err != nil {
		return utils.Result{}, err
	}
	out, err := iterate(ctx, cfg, centroids, func(_ context.Context, centroids utils.Points) ([]utils.PartialAggregate, error) {
		return pass(points, centroids), nil
	})
	if err != nil {
		return utils.Result{}, err
	}
	// final classification with the final centroids
	pass(points, out.centroids)
	return newResult(name, points, out, start), nil
}

/*---------------------------------------------------- K-MEANS -------------------------------------------------------*/

// initialize validates the run and draws the initial centroids from a generator owned by the run
func initialize(cfg Config, points utils.Points) (utils.Points, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, utils.Configuration("empty dataset")
	}
	seeder, err := cfg.seeder()
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	centroids, err := seeder.Seed(rng, points, cfg.K)
	if err != nil {
		return nil, err
	}
	utils.Debugf("--> initialized %d centroids with average distance of %f.",
		len(centroids), utils.GetAvgDistanceOfSet(centroids))
	return centroids, nil
}

// iterate runs rounds until convergence, the iteration threshold or the time budget
func iterate(ctx context.Context, cfg Config, centroids utils.Points, next round) (outcome, error) {
	var (
		out   outcome
		start = time.Now()
	)
	numIter := 1
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		log.Printf("Standard K-Means iteration #%d... ", numIter)

		merged, err := next(ctx, centroids)
		if err != nil {
			return out, err
		}
		// reduce
		newCentroids := utils.Reduce(centroids, merged)
		delta := utils.ComputeDelta(centroids, newCentroids)
		converged := utils.Converged(centroids, newCentroids, cfg.Epsilon)
		centroids = newCentroids
		utils.Debugf("--> iteration #%d: delta %f", numIter, delta)

		if converged {
			out.converged = true
			out.message = fmt.Sprintf("Algorithm converged after %d iterations", numIter)
			break
		}
		// check iteration threshold
		if numIter >= cfg.MaxIterations {
			out.message = fmt.Sprintf("Algorithm terminated after reaching the maximum number of iterations (%d). ",
				numIter)
			out.message += fmt.Sprintf("Last delta obtained in centroids position is %f", delta)
			break
		}
		// check time budget
		if cfg.TimeBudget > 0 && time.Since(start) >= cfg.TimeBudget {
			out.message = fmt.Sprintf("Algorithm stopped after exhausting its time budget (%s) in %d iterations. ",
				cfg.TimeBudget, numIter)
			out.message += fmt.Sprintf("Last delta obtained in centroids position is %f", delta)
			break
		}
		// iterate
		numIter++
	}
	out.centroids = centroids
	out.iterations = numIter
	log.Printf("--> %s", strings.ToLower(out.message))
	return out, nil
}

func newResult(engine string, points utils.Points, out outcome, start time.Time) utils.Result {
	return utils.Result{
		RunId:      utils.NewRunId(),
		Engine:     engine,
		Centroids:  out.centroids,
		Points:     points,
		Iterations: out.iterations,
		Converged:  out.converged,
		Message:    out.message,
		Elapsed:    time.Since(start),
	}
}
