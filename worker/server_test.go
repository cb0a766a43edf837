package worker

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WatchJani/K-means/transport"
	"github.com/WatchJani/K-means/utils"
)

func startServer(t *testing.T) (*Server, chan error) {
	t.Helper()
	srv := NewServer(NewService(testData, 2))
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() { _ = srv.Close() })
	return srv, done
}

func TestServerWithSocketHandle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv, done := startServer(t)

	h := transport.NewSocketHandle(srv.Addr().String())
	require.NoError(t, h.Prepare(ctx, 4))

	partials, err := h.RequestAggregates(ctx, utils.Partition{Start: 0, End: 3}, testCentroids)
	require.NoError(t, err)
	assert.Equal(t, 2, partials[0].Count)
	assert.Equal(t, 1, partials[1].Count)
	assert.InDelta(t, 10, partials[1].SumLat, 1e-12)

	points, err := h.RequestRelabeled(ctx, utils.Partition{Start: 2, End: 4}, testCentroids)
	require.NoError(t, err)
	assert.Equal(t, "#000002", points[0].Label)

	_, err = h.RequestAggregates(ctx, utils.Partition{Start: 0, End: 9}, testCentroids)
	assert.Error(t, err)

	require.NoError(t, h.Terminate(ctx))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server still serving after TERMINATE")
	}
}

func TestServerRawLines(t *testing.T) {
	srv, _ := startServer(t)
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)

	exchange := func(line string) string {
		_, err := conn.Write([]byte(line))
		require.NoError(t, err)
		resp, err := r.ReadString('\n')
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, "ERROR Unknown command: HELLO\n", exchange("hello world\n"))
	assert.Equal(t, "OK\n", exchange("number 4\n"))
	assert.Contains(t, exchange("KMEANS {\"start\":0}\n"), "ERROR ")
}

func TestServerConcurrentPeers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv, _ := startServer(t)

	client, err := transport.NewSocketClient([]string{srv.Addr().String()})
	require.NoError(t, err)
	handles := client.Handles(3)
	errs := make(chan error, len(handles))
	for _, h := range handles {
		go func(h *transport.SocketHandle) {
			if err := h.Prepare(ctx, 4); err != nil {
				errs <- err
				return
			}
			_, err := h.RequestAggregates(ctx, utils.Partition{Start: 0, End: 4}, testCentroids)
			errs <- err
		}(h)
	}
	for range handles {
		assert.NoError(t, <-errs)
	}
	for _, h := range handles {
		assert.NoError(t, h.Close())
	}
}
