package transport

import (
	"bufio"
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/WatchJani/K-means/protocol"
	"github.com/WatchJani/K-means/utils"
)

const (
	network     = "tcp"
	dialTimeout = 5 * time.Second
)

// SocketClient : hands out worker slots over a fixed list of addresses in round-robin order
type SocketClient struct {
	addrs   []string
	current atomic.Uint64
	Codec   protocol.Codec
}

// NewSocketClient creates a client over the given worker addresses
func NewSocketClient(addrs []string) (*SocketClient, error) {
	if len(addrs) == 0 {
		return nil, utils.Configuration("no worker address")
	}
	return &SocketClient{addrs: addrs, Codec: protocol.JSONCodec{}}, nil
}

// next returns the address of the next slot, cycling over the list
func (c *SocketClient) next() string {
	idx := c.current.Add(1) - 1
	return c.addrs[idx%uint64(len(c.addrs))]
}

// Handles returns 'slots' handles, one connection each; slots <= 0 means one per address
func (c *SocketClient) Handles(slots int) []*SocketHandle {
	if slots <= 0 {
		slots = len(c.addrs)
	}
	res := make([]*SocketHandle, slots)
	for i := range res {
		res[i] = &SocketHandle{addr: c.next(), codec: c.Codec}
	}
	return res
}

// SocketHandle : worker reached over one line-protocol TCP connection
type SocketHandle struct {
	addr   string
	codec  protocol.Codec
	mutex  sync.Mutex // one exchange at a time on the connection
	conn   net.Conn
	reader *bufio.Reader
}

// NewSocketHandle creates a handle towards a single worker address
func NewSocketHandle(addr string) *SocketHandle {
	return &SocketHandle{addr: addr, codec: protocol.JSONCodec{}}
}

// Addr returns the worker address
func (h *SocketHandle) Addr() string {
	return h.addr
}

func (h *SocketHandle) String() string {
	return h.addr
}

func (h *SocketHandle) Prepare(ctx context.Context, n int) error {
	resp, err := h.exchange(ctx, protocol.FormatNumber(n))
	if err != nil {
		return err
	}
	if resp != protocol.OK {
		return utils.Malformed(nil, "unexpected NUMBER response %q", resp)
	}
	return nil
}

func (h *SocketHandle) RequestAggregates(ctx context.Context, p utils.Partition,
	centroids utils.Points) ([]utils.PartialAggregate, error) {
	resp, err := h.request(ctx, protocol.KMeans, p, centroids)
	if err != nil {
		return nil, err
	}
	return h.codec.DecodeAggregates([]byte(resp), len(centroids))
}

func (h *SocketHandle) RequestRelabeled(ctx context.Context, p utils.Partition,
	centroids utils.Points) (utils.Points, error) {
	resp, err := h.request(ctx, protocol.Location, p, centroids)
	if err != nil {
		return nil, err
	}
	points, err := h.codec.DecodePoints([]byte(resp))
	if err != nil {
		return nil, err
	}
	if len(points) != p.Len() {
		return nil, utils.Malformed(nil, "expected %d points, got %d", p.Len(), len(points))
	}
	return points, nil
}

// Terminate asks the worker to leave its serve loop and closes the connection
func (h *SocketHandle) Terminate(ctx context.Context) error {
	_, err := h.exchange(ctx, protocol.FormatRequest(protocol.Terminate, nil))
	if cerr := h.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close drops the connection; the next exchange dials again
func (h *SocketHandle) Close() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.drop()
}

func (h *SocketHandle) request(ctx context.Context, cmd protocol.Command, p utils.Partition,
	centroids utils.Points) (string, error) {
	// marshalling
	payload, err := h.codec.EncodePayload(protocol.Payload{Start: p.Start, End: p.End, Centroids: centroids})
	if err != nil {
		return "", err
	}
	return h.exchange(ctx, protocol.FormatRequest(cmd, payload))
}

// exchange writes a request line and reads the response line
func (h *SocketHandle) exchange(ctx context.Context, line string) (string, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if err := h.connect(ctx); err != nil {
		return "", err
	}
	// bound the exchange by the context
	if dl, ok := ctx.Deadline(); ok {
		_ = h.conn.SetDeadline(dl)
	} else {
		_ = h.conn.SetDeadline(time.Time{})
	}
	conn := h.conn
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write([]byte(line)); err != nil {
		_ = h.drop()
		return "", utils.Transport(err, "write to %s", h.addr)
	}
	resp, err := h.reader.ReadString('\n')
	if err != nil {
		_ = h.drop()
		return "", utils.Transport(err, "read from %s", h.addr)
	}
	return protocol.CheckResponse(resp)
}

func (h *SocketHandle) connect(ctx context.Context) error {
	if h.conn != nil {
		return nil
	}
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, network, h.addr)
	if err != nil {
		return utils.Transport(err, "dial %s", h.addr)
	}
	h.conn = conn
	h.reader = bufio.NewReader(conn)
	utils.Debugf("--> connected to worker %s", h.addr)
	return nil
}

func (h *SocketHandle) drop() error {
	if h.conn == nil {
		return nil
	}
	err := h.conn.Close()
	h.conn = nil
	h.reader = nil
	return err
}
