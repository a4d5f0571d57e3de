package client

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hasirciogluhq/sortbench/internal/codec"
	"github.com/hasirciogluhq/sortbench/internal/dataset"
	"github.com/hasirciogluhq/sortbench/internal/engine"
	"github.com/hasirciogluhq/sortbench/internal/logger"
)

// Benchmark submits the same dataset once per algorithm and iteration.
type Benchmark struct {
	Client     *Client
	Algorithms []engine.Algorithm
	// Column is sent with every request; empty leaves it to the server default.
	Column     string
	Iterations int
	// Parallel caps in-flight requests; <= 0 means one at a time.
	Parallel int
}

// Result holds the server-reported timings of one algorithm.
type Result struct {
	Algorithm engine.Algorithm
	Runs      []time.Duration
	Min       time.Duration
	Max       time.Duration
	Avg       time.Duration
	// Sorted is the order returned by the first run.
	Sorted dataset.Dataset
}

// Run executes the benchmark. It fails on the first transport or server
// error, and with an *OrderMismatchError when two algorithms disagree.
func (b *Benchmark) Run(ctx context.Context, ds dataset.Dataset) ([]Result, error) {
	algs := b.Algorithms
	if len(algs) == 0 {
		algs = engine.Algorithms()
	}
	iterations := max(b.Iterations, 1)

	results := make([]Result, len(algs))
	for i, alg := range algs {
		results[i] = Result{Algorithm: alg, Runs: make([]time.Duration, iterations)}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.Parallel, 1))
	for i, alg := range algs {
		for n := range iterations {
			g.Go(func() error {
				resp, err := b.Client.Submit(ctx, &codec.SortRequest{
					Algorithm: alg,
					Column:    b.Column,
					Data:      ds,
				})
				if err != nil {
					return fmt.Errorf("%s run %d: %w", alg, n+1, err)
				}
				logger.Debug("Benchmark run finished", "algorithm", alg, "run", n+1, "elapsed", resp.Elapsed)
				results[i].Runs[n] = resp.Elapsed
				if n == 0 {
					results[i].Sorted = resp.SortedData
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range results {
		summarize(&results[i])
	}
	for i := 1; i < len(results); i++ {
		if !dataset.Equal(results[i].Sorted, results[0].Sorted) {
			return results, &OrderMismatchError{Algorithm: results[i].Algorithm, Reference: results[0].Algorithm}
		}
	}
	return results, nil
}

func summarize(r *Result) {
	var total time.Duration
	r.Min, r.Max = r.Runs[0], r.Runs[0]
	for _, d := range r.Runs {
		r.Min = min(r.Min, d)
		r.Max = max(r.Max, d)
		total += d
	}
	r.Avg = total / time.Duration(len(r.Runs))
}
