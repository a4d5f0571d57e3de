package factory

import (
	"context"
	"fmt"
	"strings"

	"github.com/hasirciogluhq/sortbench/internal/logger"
	"github.com/hasirciogluhq/sortbench/internal/source"
)

// SourceFactory creates dataset sources
type SourceFactory struct {
	driver string
	dsn    string
	query  string
}

// NewSourceFactory creates a new source factory. Driver "file" (or empty)
// treats dsn as a path to a JSON array; any other driver is a database.
func NewSourceFactory(driver, dsn, query string) *SourceFactory {
	return &SourceFactory{driver: driver, dsn: dsn, query: query}
}

// Create opens the configured source
func (f *SourceFactory) Create(ctx context.Context) (source.Source, error) {
	switch strings.ToLower(strings.TrimSpace(f.driver)) {
	case "", "file":
		if f.dsn == "" {
			return nil, fmt.Errorf("dataset file path is required")
		}
		logger.Info("Using file dataset source", "path", f.dsn)
		return &source.File{Path: f.dsn}, nil
	default:
		return f.createSQLSource(ctx)
	}
}

func (f *SourceFactory) createSQLSource(ctx context.Context) (source.Source, error) {
	if f.query == "" {
		return nil, fmt.Errorf("a query is required for the %s source", f.driver)
	}
	logger.Info("Creating SQL dataset source", "driver", f.driver)

	db, err := source.Open(ctx, f.driver, f.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s source: %w", f.driver, err)
	}
	return db.Query(f.query), nil
}
