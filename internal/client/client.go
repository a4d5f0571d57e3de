// Package client submits sort requests to a sortbench server and runs
// benchmarks across algorithms.
package client

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/hasirciogluhq/sortbench/internal/codec"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxResponseSize = 64 << 20
)

// Client talks to one server address. A connection is opened per request.
type Client struct {
	Addr string
	// Timeout bounds a whole exchange; zero means no limit beyond ctx.
	Timeout time.Duration
	// MaxResponseSize limits accepted response frames; <= 0 disables the check.
	MaxResponseSize int

	codec *codec.Codec
}

func New(addr string) *Client {
	return &Client{
		Addr:            addr,
		Timeout:         DefaultTimeout,
		MaxResponseSize: DefaultMaxResponseSize,
		codec:           codec.New(0),
	}
}

// Submit sends req and waits for the response. An error response is
// returned together with a *RemoteError.
func (c *Client) Submit(ctx context.Context, req *codec.SortRequest) (*codec.SortResponse, error) {
	cd := c.codec
	if cd == nil {
		cd = codec.New(0)
	}
	payload, err := cd.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, c.transportErr("dial", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// Unblock pending I/O on cancellation.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := codec.WriteFrame(conn, payload); err != nil {
		// The server may have rejected the request early and replied
		// before it stopped reading.
		raw, readErr := codec.ReadFrame(conn, c.MaxResponseSize)
		if readErr != nil {
			return nil, c.transportErr("write", c.cause(ctx, err))
		}
		return c.decode(cd, raw)
	}
	raw, err := codec.ReadFrame(conn, c.MaxResponseSize)
	if err != nil {
		return nil, c.transportErr("read", c.cause(ctx, err))
	}
	return c.decode(cd, raw)
}

func (c *Client) decode(cd *codec.Codec, raw []byte) (*codec.SortResponse, error) {
	resp, err := cd.DecodeResponse(raw)
	if err != nil {
		return nil, c.transportErr("decode", err)
	}
	if resp.Failed() {
		return resp, &RemoteError{Message: resp.Error}
	}
	return resp, nil
}

// cause prefers the context error over the deadline error it provoked.
func (c *Client) cause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ctxErr
		}
	}
	return err
}

func (c *Client) transportErr(op string, err error) error {
	return &TransportError{Op: op, Addr: c.Addr, Err: err}
}
