// Package engine sorts a Dataset by one column with one of four algorithms and
// measures how long the algorithm itself took.
//
// Every algorithm produces the same stable order: records are ordered by the
// column value and records with equal values keep their input order. Callers
// can therefore compare algorithms on elapsed time alone.
package engine

import (
	"cmp"
	"context"
	"time"

	"github.com/hasirciogluhq/sortbench/internal/dataset"
)

// cancelCheckInterval is the number of comparisons between context checks.
const cancelCheckInterval = 1024

// entry pairs a sort key with the position of its record in the input.
type entry struct {
	key dataset.Value
	pos int
}

type sorter func(entries []entry, cmp func(a, b entry) int) []entry

// sorters is the static dispatch table from Algorithm to implementation.
var sorters = map[Algorithm]sorter{
	Bubble: bubbleSort[entry],
	Quick:  quickSort[entry],
	Merge:  mergeSort[entry],
	Heap: func(entries []entry, cmp func(a, b entry) int) []entry {
		return heapSort(entries, func(a, b entry) int {
			if c := cmp(a, b); c != 0 {
				return c
			}
			return comparePos(a, b)
		})
	},
}

func comparePos(a, b entry) int { return cmp.Compare(a.pos, b.pos) }

func compareKeys(a, b entry) int { return dataset.Compare(a.key, b.key) }

// Measure runs fn and returns its result together with the wall-clock time it took.
func Measure[T any](fn func() T) (T, time.Duration) {
	start := time.Now()
	result := fn()
	return result, time.Since(start)
}

// Sort orders ds by column using alg. The input is never modified; the
// returned Dataset is a new slice over the same immutable records. The
// duration covers the algorithm only, not validation or result assembly.
func Sort(ds dataset.Dataset, column string, alg Algorithm) (dataset.Dataset, time.Duration, error) {
	return SortContext(context.Background(), ds, column, alg)
}

// SortContext is Sort with cancellation. The comparator polls ctx
// periodically and the sort is abandoned with ctx.Err() once ctx is done.
func SortContext(ctx context.Context, ds dataset.Dataset, column string, alg Algorithm) (dataset.Dataset, time.Duration, error) {
	run, ok := sorters[alg]
	if !ok {
		return nil, 0, &UnsupportedAlgorithmError{Name: alg.String()}
	}

	entries, err := keys(ds, column)
	if err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	sorted, elapsed, err := runGuarded(ctx, run, entries)
	if err != nil {
		return nil, 0, err
	}

	out := make(dataset.Dataset, len(sorted))
	for i, e := range sorted {
		out[i] = ds[e.pos]
	}
	return out, elapsed, nil
}

// keys extracts the sort key of every record and checks that all keys share
// one comparison class.
func keys(ds dataset.Dataset, column string) ([]entry, error) {
	if column == "" {
		return nil, &SchemaError{}
	}
	entries := make([]entry, len(ds))
	var class dataset.Class
	for i, r := range ds {
		v, ok := r.Get(column)
		if !ok {
			return nil, &SchemaError{Column: column, Row: i}
		}
		if i == 0 {
			class = v.Class()
		} else if v.Class() != class {
			return nil, &ComparisonError{Column: column, Row: i, Want: class, Got: v.Class()}
		}
		entries[i] = entry{key: v, pos: i}
	}
	return entries, nil
}

// sortCanceled carries a context error out of a comparator.
type sortCanceled struct{ err error }

func runGuarded(ctx context.Context, run sorter, entries []entry) (sorted []entry, elapsed time.Duration, err error) {
	compare := compareKeys
	if ctx.Done() != nil {
		calls := 0
		compare = func(a, b entry) int {
			calls++
			if calls%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					panic(sortCanceled{err: err})
				}
			}
			return compareKeys(a, b)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			c, ok := r.(sortCanceled)
			if !ok {
				panic(r)
			}
			sorted, elapsed, err = nil, 0, c.err
		}
	}()

	sorted, elapsed = Measure(func() []entry { return run(entries, compare) })
	return sorted, elapsed, nil
}
