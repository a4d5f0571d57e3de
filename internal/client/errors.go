package client

import (
	"fmt"

	"github.com/hasirciogluhq/sortbench/internal/engine"
)

// TransportError reports a failure to reach the server or to exchange a
// well-formed message with it.
type TransportError struct {
	// Op is one of dial, write, read or decode
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError carries the message of an error response.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "server error: " + e.Message
}

// OrderMismatchError reports two algorithms that produced different orders
// for the same dataset.
type OrderMismatchError struct {
	Algorithm engine.Algorithm
	Reference engine.Algorithm
}

func (e *OrderMismatchError) Error() string {
	return fmt.Sprintf("%s returned a different order than %s", e.Algorithm, e.Reference)
}
