// Package source loads benchmark datasets from JSON files or SQL databases.
package source

import (
	"context"
	"fmt"
	"os"

	"github.com/hasirciogluhq/sortbench/internal/codec"
	"github.com/hasirciogluhq/sortbench/internal/dataset"
)

// Source produces a dataset to benchmark against.
type Source interface {
	Load(ctx context.Context) (dataset.Dataset, error)
	Close() error
}

// File reads a JSON array of records, the same shape as a request's data field.
type File struct {
	Path string
}

func (f *File) Load(ctx context.Context) (dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	ds, err := codec.DecodeDataset(b)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.Path, err)
	}
	return ds, nil
}

func (f *File) Close() error { return nil }
