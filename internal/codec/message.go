package codec

import (
	"time"

	"github.com/hasirciogluhq/sortbench/internal/dataset"
	"github.com/hasirciogluhq/sortbench/internal/engine"
)

// SortRequest is a sorting job sent by a client.
type SortRequest struct {
	Algorithm engine.Algorithm
	// Column may be empty, in which case the server applies its default column.
	Column string
	Data   dataset.Dataset
}

// SortResponse is either a success (Algorithm, Elapsed, SortedData) or a
// failure (Error). The two shapes never mix on the wire.
type SortResponse struct {
	Algorithm  engine.Algorithm
	Elapsed    time.Duration
	SortedData dataset.Dataset
	Error      string
}

// Failed reports whether r is a failure response.
func (r *SortResponse) Failed() bool { return r.Error != "" }

// Success builds a success response.
func Success(alg engine.Algorithm, elapsed time.Duration, sorted dataset.Dataset) *SortResponse {
	if sorted == nil {
		sorted = dataset.Dataset{}
	}
	return &SortResponse{Algorithm: alg, Elapsed: elapsed, SortedData: sorted}
}

// Failure builds a failure response carrying err's message.
func Failure(err error) *SortResponse {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &SortResponse{Error: msg}
}
