package session

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hasirciogluhq/sortbench/internal/codec"
	"github.com/hasirciogluhq/sortbench/internal/core"
	"github.com/hasirciogluhq/sortbench/internal/dataset"
	"github.com/hasirciogluhq/sortbench/internal/engine"
)

func newHandler() *Handler {
	return &Handler{
		Codec:          codec.New(codec.DefaultMaxMessageSize),
		DefaultColumn:  "FECHA_VENTA",
		ReadTimeout:    2 * time.Second,
		ProcessTimeout: 2 * time.Second,
		WriteTimeout:   2 * time.Second,
	}
}

// serveOne runs h on a single loopback connection and returns the client end
// together with a channel carrying the handler's result.
func serveOne(t *testing.T, h *Handler) (net.Conn, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	result := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			result <- err
			return
		}
		result <- h.HandleConnection(context.Background(), conn)
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, result
}

func exchange(t *testing.T, conn net.Conn, payload string) *codec.SortResponse {
	t.Helper()
	require.NoError(t, codec.WriteFrame(conn, []byte(payload)))
	return readResponse(t, conn)
}

func readResponse(t *testing.T, conn net.Conn) *codec.SortResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	raw, err := codec.ReadFrame(conn, 0)
	require.NoError(t, err)
	resp, err := codec.New(0).DecodeResponse(raw)
	require.NoError(t, err)
	return resp
}

func waitResult(t *testing.T, result <-chan error) error {
	t.Helper()
	select {
	case err := <-result:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not finish")
		return nil
	}
}

func assertClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF, "server must close the connection after one response")
}

// TestQuickSortByDefaultColumn sends the two-row date example without a column.
func TestQuickSortByDefaultColumn(t *testing.T) {
	conn, result := serveOne(t, newHandler())

	resp := exchange(t, conn, `{"algorithm":"quick","data":[{"FECHA_VENTA":"2024-03-01"},{"FECHA_VENTA":"2023-01-01"}]}`)
	require.False(t, resp.Failed(), resp.Error)
	assert.Equal(t, engine.Quick, resp.Algorithm)
	assert.GreaterOrEqual(t, resp.Elapsed, time.Duration(0))

	encoded, err := codec.EncodeDataset(resp.SortedData)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"FECHA_VENTA":"2023-01-01"},{"FECHA_VENTA":"2024-03-01"}]`, string(encoded))

	assert.NoError(t, waitResult(t, result))
	assertClosed(t, conn)
}

// TestErrorResponses covers faults that must become error responses.
func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"unsupported algorithm", `{"algorithm":"shell","data":[]}`, `unsupported algorithm "shell"`},
		{"missing column in one record", `{"algorithm":"merge","data":[{"FECHA_VENTA":"2024-01-01"},{"ID":1}]}`, `column "FECHA_VENTA" missing from record 1`},
		{"mixed value types", `{"algorithm":"heap","column":"X","data":[{"X":1},{"X":"a"}]}`, `record 1 holds a string value`},
		{"missing data", `{"algorithm":"bubble"}`, `missing field "data"`},
		{"not json", `bye`, `malformed request`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, result := serveOne(t, newHandler())

			resp := exchange(t, conn, tt.payload)
			require.True(t, resp.Failed())
			assert.Contains(t, resp.Error, tt.want)
			assert.Nil(t, resp.SortedData, "error responses carry no partial result")

			assert.Error(t, waitResult(t, result))
			assertClosed(t, conn)
		})
	}
}

// TestDisconnectBeforeRequest verifies that an early EOF closes the session
// silently.
func TestDisconnectBeforeRequest(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	h := newHandler()
	h.OnTransition = func(_ uuid.UUID, from, to State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	conn, result := serveOne(t, h)
	require.NoError(t, conn.Close())

	assert.NoError(t, waitResult(t, result))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"awaiting_request->closed"}, transitions)
}

// TestStateTransitions checks the full path of a successful session.
func TestStateTransitions(t *testing.T) {
	var mu sync.Mutex
	var transitions []State
	h := newHandler()
	h.OnTransition = func(_ uuid.UUID, _, to State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, to)
	}

	conn, result := serveOne(t, h)
	resp := exchange(t, conn, `{"algorithm":"merge","data":[]}`)
	require.False(t, resp.Failed(), resp.Error)
	require.NoError(t, waitResult(t, result))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Processing, SendingResponse, Closed}, transitions)
	assert.False(t, canTransition(Closed, AwaitingRequest))
}

// TestOversizedRequest verifies the configured payload limit is enforced
// before the body is read and that the client still receives the reply.
func TestOversizedRequest(t *testing.T) {
	h := newHandler()
	h.Codec = codec.New(1024)
	conn, result := serveOne(t, h)

	payload := `{"algorithm":"quick","data":[{"x":"` + strings.Repeat("a", 2<<20) + `"}]}`
	require.NoError(t, codec.WriteFrame(conn, []byte(payload)))

	resp := readResponse(t, conn)
	require.True(t, resp.Failed())
	assert.Contains(t, resp.Error, "exceeds limit of 1024 bytes")
	assertClosed(t, conn)

	var tooLarge *codec.PayloadTooLargeError
	assert.ErrorAs(t, waitResult(t, result), &tooLarge)
}

// TestReadTimeout checks that an idle client gets an error and is disconnected.
func TestReadTimeout(t *testing.T) {
	h := newHandler()
	h.ReadTimeout = 50 * time.Millisecond
	conn, result := serveOne(t, h)

	resp := readResponse(t, conn)
	require.True(t, resp.Failed())
	assert.Contains(t, resp.Error, "timeout")
	assert.Error(t, waitResult(t, result))
	assertClosed(t, conn)
}

// TestTruncatedRequest covers a client that stops mid-frame.
func TestTruncatedRequest(t *testing.T) {
	conn, result := serveOne(t, newHandler())

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, 100)
	_, err := conn.Write(append(header, []byte(`{"algo`)...))
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	resp := readResponse(t, conn)
	require.True(t, resp.Failed())
	assert.Contains(t, resp.Error, "unexpected EOF")
	assert.Error(t, waitResult(t, result))
}

// TestProcessTimeout verifies the processing deadline reaches the sorter.
func TestProcessTimeout(t *testing.T) {
	h := newHandler()
	h.ProcessTimeout = 50 * time.Millisecond
	h.Sort = func(ctx context.Context, ds dataset.Dataset, column string, alg engine.Algorithm) (dataset.Dataset, time.Duration, error) {
		<-ctx.Done()
		return nil, 0, ctx.Err()
	}
	conn, result := serveOne(t, h)

	resp := exchange(t, conn, `{"algorithm":"bubble","data":[]}`)
	require.True(t, resp.Failed())
	assert.Contains(t, resp.Error, "processing deadline of 50ms exceeded")
	assert.ErrorIs(t, waitResult(t, result), context.DeadlineExceeded)
}

// TestPanicBecomesErrorResponse ensures a crashing sorter does not kill the session.
func TestPanicBecomesErrorResponse(t *testing.T) {
	h := newHandler()
	h.Sort = func(context.Context, dataset.Dataset, string, engine.Algorithm) (dataset.Dataset, time.Duration, error) {
		panic("index out of range")
	}
	conn, result := serveOne(t, h)

	resp := exchange(t, conn, `{"algorithm":"heap","data":[]}`)
	require.True(t, resp.Failed())
	assert.Equal(t, "internal error: index out of range", resp.Error)
	assert.Error(t, waitResult(t, result))
}

// TestConcurrentSessionsAreIsolated runs two clients with different
// algorithms and datasets at the same time through a real server.
func TestConcurrentSessionsAreIsolated(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	// Hold both sorts until both sessions are processing.
	var started sync.WaitGroup
	started.Add(2)
	h := newHandler()
	h.Sort = func(ctx context.Context, ds dataset.Dataset, column string, alg engine.Algorithm) (dataset.Dataset, time.Duration, error) {
		started.Done()
		started.Wait()
		return engine.SortContext(ctx, ds, column, alg)
	}

	srv := core.NewServer(ln, h, 4)
	go srv.Serve()
	defer srv.Shutdown(context.Background())

	type job struct {
		alg    string
		column string
		values []int
		want   []int
	}
	jobs := []job{
		{alg: "bubble", column: "A", values: []int{3, 1, 2}, want: []int{1, 2, 3}},
		{alg: "heap", column: "B", values: []int{20, 30, 10, 40}, want: []int{10, 20, 30, 40}},
	}

	var g errgroup.Group
	for _, j := range jobs {
		g.Go(func() error {
			conn, err := net.Dial("tcp", ln.Addr().String())
			if err != nil {
				return err
			}
			defer conn.Close()

			rows := make([]string, len(j.values))
			for i, v := range j.values {
				rows[i] = fmt.Sprintf(`{%q:%d}`, j.column, v)
			}
			payload := fmt.Sprintf(`{"algorithm":%q,"column":%q,"data":[%s]}`, j.alg, j.column, strings.Join(rows, ","))
			if err := codec.WriteFrame(conn, []byte(payload)); err != nil {
				return err
			}
			raw, err := codec.ReadFrame(conn, 0)
			if err != nil {
				return err
			}
			resp, err := codec.New(0).DecodeResponse(raw)
			if err != nil {
				return err
			}
			if resp.Failed() {
				return fmt.Errorf("%s: %s", j.alg, resp.Error)
			}
			if resp.Algorithm.String() != j.alg {
				return fmt.Errorf("got response for %s, want %s", resp.Algorithm, j.alg)
			}

			got := make([]int, len(resp.SortedData))
			for i, r := range resp.SortedData {
				v, ok := r.Get(j.column)
				if !ok {
					return fmt.Errorf("%s: column %s missing from response", j.alg, j.column)
				}
				got[i] = int(v.Int())
			}
			if fmt.Sprint(got) != fmt.Sprint(j.want) {
				return fmt.Errorf("%s: got %v, want %v", j.alg, got, j.want)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Eventually(t, func() bool { return srv.Stats().Total == 2 && srv.Stats().Failed == 0 }, 2*time.Second, 10*time.Millisecond)
}
