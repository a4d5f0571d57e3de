// Package session implements the server side of the sort protocol: one
// request and one response per connection.
//
// A session moves through
//
//	AwaitingRequest -> Processing -> SendingResponse -> Closed
//
// A read failure goes straight from AwaitingRequest to Closed after a single
// best-effort error reply; a client that disconnects before sending anything
// gets no reply. Decode and sort failures, panics included, become an error
// response and follow the normal path.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/hasirciogluhq/sortbench/internal/codec"
	"github.com/hasirciogluhq/sortbench/internal/dataset"
	"github.com/hasirciogluhq/sortbench/internal/engine"
	"github.com/hasirciogluhq/sortbench/internal/logger"
)

const (
	// drainIdleTimeout ends a drain when the peer stops sending.
	drainIdleTimeout = 500 * time.Millisecond
	// drainTimeout caps a drain when the handler has no read timeout.
	drainTimeout = 10 * time.Second
)

// SortFunc sorts a dataset; engine.SortContext is the production implementation.
type SortFunc func(ctx context.Context, ds dataset.Dataset, column string, alg engine.Algorithm) (dataset.Dataset, time.Duration, error)

// Handler implements core.ConnectionHandler for the sort protocol.
type Handler struct {
	Codec *codec.Codec
	// DefaultColumn is used when a request does not name a column.
	DefaultColumn string

	ReadTimeout    time.Duration
	ProcessTimeout time.Duration
	WriteTimeout   time.Duration

	// Sort defaults to engine.SortContext.
	Sort SortFunc
	// OnTransition, if set, observes every state change.
	OnTransition func(id uuid.UUID, from, to State)
}

type session struct {
	id      uuid.UUID
	conn    net.Conn
	state   State
	started time.Time
	log     *slog.Logger
	observe func(id uuid.UUID, from, to State)
}

func (s *session) transition(to State) {
	if !canTransition(s.state, to) {
		s.log.Error("Illegal session state change", "from", s.state, "to", to)
		return
	}
	s.log.Debug("Session state change", "from", s.state, "to", to)
	if s.observe != nil {
		s.observe(s.id, s.state, to)
	}
	s.state = to
}

func (s *session) close() {
	s.transition(Closed)
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debug("Error closing connection", "error", err)
	}
	s.log.Debug("Session closed", "duration", time.Since(s.started))
}

// drain discards the unread body of a rejected frame so that closing the
// connection does not reset it before the peer reads the early reply. It
// stops at the end of the body, when the peer goes idle, or at limit.
func (s *session) drain(remaining int64, limit time.Duration) {
	if cw, ok := s.conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	stop := time.Now().Add(limit)
	buf := make([]byte, 32<<10)
	for remaining > 0 {
		deadline := time.Now().Add(drainIdleTimeout)
		if deadline.After(stop) {
			deadline = stop
		}
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return
		}
		n, err := s.conn.Read(buf[:min(int64(len(buf)), remaining)])
		remaining -= int64(n)
		if err != nil {
			if remaining > 0 {
				s.log.Debug("Stopped draining rejected request", "unread", remaining, "error", err)
			}
			return
		}
	}
}

// HandleConnection implements core.ConnectionHandler.
// It takes full ownership of the connection lifecycle.
func (h *Handler) HandleConnection(ctx context.Context, conn net.Conn) error {
	id := uuid.New()
	s := &session{
		id:      id,
		conn:    conn,
		state:   AwaitingRequest,
		started: time.Now(),
		log:     logger.With("session_id", id.String(), "remote_addr", conn.RemoteAddr().String()),
		observe: h.OnTransition,
	}
	defer s.close()
	s.log.Debug("Session opened")

	payload, err := h.receive(s)
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.log.Debug("Client disconnected before sending a request")
			return nil
		}
		s.log.Warn("Failed to read request", "error", err)
		if replyErr := h.reply(s, codec.Failure(err)); replyErr != nil {
			s.log.Debug("Could not deliver error response", "error", replyErr)
		}
		var tooLarge *codec.PayloadTooLargeError
		if errors.As(err, &tooLarge) {
			limit := h.ReadTimeout
			if limit <= 0 {
				limit = drainTimeout
			}
			s.drain(tooLarge.Size, limit)
		}
		return err
	}

	s.transition(Processing)
	resp, procErr := h.process(ctx, s, payload)

	s.transition(SendingResponse)
	if err := h.reply(s, resp); err != nil {
		s.log.Warn("Failed to send response", "error", err)
		return err
	}
	return procErr
}

func (h *Handler) receive(s *session) ([]byte, error) {
	if h.ReadTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(h.ReadTimeout)); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}
	return codec.ReadFrame(s.conn, h.Codec.MaxMessageSize)
}

// process decodes and sorts. It always returns a response; the error is the
// fault the response reports, if any.
func (h *Handler) process(ctx context.Context, s *session, payload []byte) (resp *codec.SortResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Recovered from panic while processing request", "panic", r)
			err = fmt.Errorf("internal error: %v", r)
			resp = codec.Failure(err)
		}
	}()

	req, err := h.Codec.DecodeRequest(payload)
	if err != nil {
		s.log.Warn("Rejected request", "error", err)
		return codec.Failure(err), err
	}

	column := req.Column
	if column == "" {
		column = h.DefaultColumn
	}

	if h.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.ProcessTimeout)
		defer cancel()
	}

	sortFn := h.Sort
	if sortFn == nil {
		sortFn = engine.SortContext
	}
	sorted, elapsed, err := sortFn(ctx, req.Data, column, req.Algorithm)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("processing deadline of %s exceeded: %w", h.ProcessTimeout, err)
		}
		s.log.Warn("Sort failed", "algorithm", req.Algorithm, "column", column, "rows", len(req.Data), "error", err)
		return codec.Failure(err), err
	}

	s.log.Info("Sorted dataset", "algorithm", req.Algorithm, "column", column, "rows", len(sorted), "elapsed", elapsed)
	return codec.Success(req.Algorithm, elapsed, sorted), nil
}

// reply encodes and writes resp. A response that cannot be encoded is
// replaced by an error response.
func (h *Handler) reply(s *session, resp *codec.SortResponse) error {
	payload, err := h.Codec.EncodeResponse(resp)
	if err != nil {
		s.log.Error("Failed to encode response", "error", err)
		payload, err = h.Codec.EncodeResponse(codec.Failure(fmt.Errorf("failed to encode response: %w", err)))
		if err != nil {
			return err
		}
	}

	if h.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(h.WriteTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	return codec.WriteFrame(s.conn, payload)
}
