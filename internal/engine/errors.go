package engine

import (
	"fmt"

	"github.com/hasirciogluhq/sortbench/internal/dataset"
)

// SchemaError reports a sort column missing from a record.
type SchemaError struct {
	// Column is the requested sort column
	Column string
	// Row is the index of the first record lacking Column
	Row int
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return "sort column must not be empty"
	}
	return fmt.Sprintf("column %q missing from record %d", e.Column, e.Row)
}

// UnsupportedAlgorithmError reports an algorithm name outside the dispatch table.
type UnsupportedAlgorithmError struct {
	Name string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported algorithm %q", e.Name)
}

// ComparisonError reports column values that are not mutually comparable.
type ComparisonError struct {
	Column string
	// Row is the index of the first record whose value disagrees with record 0
	Row  int
	Want dataset.Class
	Got  dataset.Class
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("column %q: record %d holds a %s value, expected %s", e.Column, e.Row, e.Got, e.Want)
}
