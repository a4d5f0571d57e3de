package core

import (
	"context"
	"net"
)

// ConnectionHandler owns one accepted connection for its whole lifetime,
// including closing it. It returns a non-nil error when the session failed;
// the error is used for accounting only.
type ConnectionHandler interface {
	HandleConnection(ctx context.Context, conn net.Conn) error
}

// ConnectionHandlerFunc adapts a function to ConnectionHandler.
type ConnectionHandlerFunc func(ctx context.Context, conn net.Conn) error

func (f ConnectionHandlerFunc) HandleConnection(ctx context.Context, conn net.Conn) error {
	return f(ctx, conn)
}

// Stats is a snapshot of session counters.
type Stats struct {
	Active int64 `json:"active"`
	Total  int64 `json:"total"`
	Failed int64 `json:"failed"`
}
