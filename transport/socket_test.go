package transport

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WatchJani/K-means/protocol"
	"github.com/WatchJani/K-means/utils"
)

// lineServer answers every request line with answer(line); an empty answer means no reply
func lineServer(t *testing.T, answer func(cmd protocol.Command, data string) string) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				r := bufio.NewReader(conn)
				for {
					line, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if resp := answer(protocol.ParseRequest(line)); resp != "" {
						_, _ = conn.Write([]byte(resp + "\n"))
					}
				}
			}(conn)
		}
	}()
	return l.Addr().String()
}

func TestSocketClientRoundRobin(t *testing.T) {
	_, err := NewSocketClient(nil)
	assert.True(t, errors.Is(err, utils.ErrConfiguration))

	c, err := NewSocketClient([]string{"a:1", "b:2"})
	require.NoError(t, err)
	handles := c.Handles(5)
	require.Len(t, handles, 5)
	var addrs []string
	for _, h := range handles {
		addrs = append(addrs, h.Addr())
	}
	assert.Equal(t, []string{"a:1", "b:2", "a:1", "b:2", "a:1"}, addrs)
	assert.Len(t, c.Handles(0), 2)
}

func TestSocketHandle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	addr := lineServer(t, func(cmd protocol.Command, data string) string {
		switch cmd {
		case protocol.Number:
			return protocol.OK
		case protocol.KMeans:
			return `{"centroids":[{"id":"Centroid","lat":1.5,"lon":2,"weight":3,"label":"#000001","count":2}]}`
		case protocol.Location:
			return `[{"id":"p"}]`
		case protocol.Terminate:
			return protocol.OK
		}
		return protocol.UnknownCommand(cmd)
	})
	h := NewSocketHandle(addr)
	centroids := utils.Points{utils.NewCentroid(0, 0, 0, "#000001")}

	require.NoError(t, h.Prepare(ctx, 4))

	partials, err := h.RequestAggregates(ctx, utils.Partition{Start: 0, End: 2}, centroids)
	require.NoError(t, err)
	assert.Equal(t, utils.PartialAggregate{SumLat: 3, SumLon: 4, SumWeight: 6, Count: 2}, partials[0])

	points, err := h.RequestRelabeled(ctx, utils.Partition{Start: 5, End: 6}, centroids)
	require.NoError(t, err)
	assert.Equal(t, "p", points[0].Id)

	t.Run("length mismatch", func(t *testing.T) {
		_, err := h.RequestRelabeled(ctx, utils.Partition{Start: 0, End: 3}, centroids)
		assert.True(t, errors.Is(err, utils.ErrMalformedPayload))
	})

	require.NoError(t, h.Terminate(ctx))
}

func TestSocketHandleFailures(t *testing.T) {
	t.Run("refused", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := l.Addr().String()
		require.NoError(t, l.Close())

		err = NewSocketHandle(addr).Prepare(context.Background(), 1)
		assert.True(t, errors.Is(err, utils.ErrTransportFailure))
	})

	t.Run("deadline", func(t *testing.T) {
		addr := lineServer(t, func(protocol.Command, string) string { return "" })
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := NewSocketHandle(addr).Prepare(ctx, 1)
		assert.True(t, errors.Is(err, utils.ErrTransportFailure))
	})

	t.Run("error response", func(t *testing.T) {
		addr := lineServer(t, func(protocol.Command, string) string { return "ERROR dataset not prepared" })
		_, err := NewSocketHandle(addr).RequestAggregates(context.Background(), utils.Partition{Start: 0, End: 1},
			utils.Points{utils.NewCentroid(0, 0, 0, "")})
		assert.True(t, errors.Is(err, utils.ErrMalformedPayload))
	})
}
