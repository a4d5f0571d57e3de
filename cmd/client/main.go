package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/hasirciogluhq/sortbench/internal/client"
	"github.com/hasirciogluhq/sortbench/internal/engine"
	"github.com/hasirciogluhq/sortbench/internal/factory"
	"github.com/hasirciogluhq/sortbench/internal/logger"
)

func main() {
	var (
		addr            string
		algorithms      []string
		column          string
		input           string
		driver          string
		dsn             string
		query           string
		iterations      int
		parallel        int
		timeout         time.Duration
		maxResponseSize int
		debug           bool
	)
	pflag.StringVarP(&addr, "addr", "a", "localhost:8080", "sort server address")
	pflag.StringSliceVarP(&algorithms, "algorithms", "A", []string{"bubble", "quick", "merge", "heap"}, "algorithms to benchmark")
	pflag.StringVarP(&column, "column", "c", "", "sort column (server default when empty)")
	pflag.StringVarP(&input, "input", "i", "", "JSON file holding an array of records")
	pflag.StringVar(&driver, "driver", "", "database driver: mysql, postgres or sqlite")
	pflag.StringVar(&dsn, "dsn", "", "database connection string")
	pflag.StringVarP(&query, "query", "q", "SELECT * FROM VENTAS", "query producing the dataset")
	pflag.IntVarP(&iterations, "iterations", "n", 1, "runs per algorithm")
	pflag.IntVarP(&parallel, "parallel", "p", 1, "requests in flight")
	pflag.DurationVarP(&timeout, "timeout", "t", client.DefaultTimeout, "per-request timeout")
	pflag.IntVar(&maxResponseSize, "max-response-size", client.DefaultMaxResponseSize, "largest accepted response in bytes")
	pflag.BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	pflag.Parse()

	logger.Init(debug)

	algs := make([]engine.Algorithm, 0, len(algorithms))
	for _, name := range algorithms {
		alg, err := engine.ParseAlgorithm(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --algorithms: %v\n", err)
			os.Exit(2)
		}
		algs = append(algs, alg)
	}

	if input != "" && driver != "" {
		fmt.Fprintln(os.Stderr, "--input and --driver are mutually exclusive")
		os.Exit(2)
	}
	sourceFactory := factory.NewSourceFactory("file", input, "")
	if driver != "" {
		sourceFactory = factory.NewSourceFactory(driver, dsn, query)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := sourceFactory.Create(ctx)
	if err != nil {
		logger.Fatal("Failed to open dataset source", "error", err)
	}
	ds, err := src.Load(ctx)
	src.Close()
	if err != nil {
		logger.Fatal("Failed to load dataset", "error", err)
	}
	logger.Info("Dataset loaded", "rows", len(ds))

	c := client.New(addr)
	c.Timeout = timeout
	c.MaxResponseSize = maxResponseSize

	bench := &client.Benchmark{
		Client:     c,
		Algorithms: algs,
		Column:     column,
		Iterations: iterations,
		Parallel:   parallel,
	}
	results, err := bench.Run(ctx, ds)

	var mismatch *client.OrderMismatchError
	if err != nil && !errors.As(err, &mismatch) {
		logger.Fatal("Benchmark failed", "error", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "ALGORITHM\tRUNS\tMIN\tAVG\tMAX\t")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t\n", r.Algorithm, len(r.Runs), r.Min, r.Avg, r.Max)
	}
	w.Flush()

	if mismatch != nil {
		logger.Error("Algorithms disagree on the sorted order", "error", mismatch)
		os.Exit(1)
	}
}
