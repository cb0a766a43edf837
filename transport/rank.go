package transport

import (
	"context"
	"strconv"
	"sync"

	"github.com/WatchJani/K-means/protocol"
	"github.com/WatchJani/K-means/utils"
)

/*---------------------------------------------------- BUFFERS -------------------------------------------------------*/

// SendBuffer sends a length-prefixed buffer: the length on lenTag, then the chunks on dataTag
func SendBuffer(ctx context.Context, c Comm, dest int, lenTag int, dataTag int, data []byte) error {
	if err := c.Send(ctx, dest, lenTag, protocol.EncodeInt(int32(len(data)))); err != nil {
		return err
	}
	for _, chunk := range protocol.SplitChunks(data, protocol.MaxChunk) {
		if err := c.Send(ctx, dest, dataTag, chunk); err != nil {
			return err
		}
	}
	return nil
}

// RecvBuffer receives a buffer sent by SendBuffer
func RecvBuffer(ctx context.Context, c Comm, src int, lenTag int, dataTag int) ([]byte, error) {
	raw, err := c.Recv(ctx, src, lenTag)
	if err != nil {
		return nil, err
	}
	length, err := protocol.DecodeInt(raw)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, utils.Malformed(nil, "negative buffer length %d", length)
	}
	data := make([]byte, 0, length)
	for len(data) < int(length) {
		chunk, err := c.Recv(ctx, src, dataTag)
		if err != nil {
			return nil, err
		}
		data = append(data, chunk...)
	}
	if len(data) != int(length) {
		return nil, utils.Malformed(nil, "buffer of %d bytes announced as %d", len(data), length)
	}
	return data, nil
}

// SendCommand sends an opcode from the coordinator, followed by its payload when it has one
func SendCommand(ctx context.Context, c Comm, dest int, op protocol.Opcode, payload []byte) error {
	if err := c.Send(ctx, dest, protocol.TagCommand, protocol.EncodeInt(int32(op))); err != nil {
		return err
	}
	if !op.HasPayload() {
		return nil
	}
	return SendBuffer(ctx, c, dest, protocol.TagLength, protocol.TagPayload, payload)
}

// RecvCommand receives the next opcode sent by the coordinator and its payload
func RecvCommand(ctx context.Context, c Comm) (protocol.Opcode, []byte, error) {
	raw, err := c.Recv(ctx, 0, protocol.TagCommand)
	if err != nil {
		return 0, nil, err
	}
	v, err := protocol.DecodeInt(raw)
	if err != nil {
		return 0, nil, err
	}
	op := protocol.Opcode(v)
	if !op.HasPayload() {
		return op, nil, nil
	}
	payload, err := RecvBuffer(ctx, c, 0, protocol.TagLength, protocol.TagPayload)
	return op, payload, err
}

// SendResult sends a worker response back to the coordinator
func SendResult(ctx context.Context, c Comm, data []byte) error {
	return SendBuffer(ctx, c, 0, protocol.TagResultLength, protocol.TagResult, data)
}

/*------------------------------------------------------ HANDLE ------------------------------------------------------*/

// RankTransport : coordinator side of the message-passing binding
type RankTransport struct {
	Comm  Comm
	Codec protocol.Codec
}

// NewRankTransport binds the coordinator communicator (rank 0)
func NewRankTransport(c Comm) (*RankTransport, error) {
	if c.Rank() != 0 {
		return nil, utils.Configuration("the coordinator must be rank 0, got %d", c.Rank())
	}
	if c.Size() < 2 {
		return nil, utils.Configuration("at least two processes are required (1 coordinator + 1 worker), got %d", c.Size())
	}
	return &RankTransport{Comm: c, Codec: protocol.JSONCodec{}}, nil
}

// Handles returns one handle per worker rank 1..size-1
func (t *RankTransport) Handles() []*RankHandle {
	res := make([]*RankHandle, 0, t.Comm.Size()-1)
	for r := 1; r < t.Comm.Size(); r++ {
		res = append(res, &RankHandle{comm: t.Comm, rank: r, codec: t.Codec})
	}
	return res
}

// Barrier is the collective acknowledgment following the NUMBER broadcast
func (t *RankTransport) Barrier(ctx context.Context) error {
	return Barrier(ctx, t.Comm)
}

// RankHandle : worker reached through its rank
type RankHandle struct {
	comm  Comm
	rank  int
	codec protocol.Codec
	mutex sync.Mutex // one exchange at a time per rank
}

// Rank returns the rank of the worker
func (h *RankHandle) Rank() int {
	return h.rank
}

func (h *RankHandle) String() string {
	return "rank " + strconv.Itoa(h.rank)
}

// Prepare sends the NUMBER command; the acknowledgment is the collective barrier of the transport
func (h *RankHandle) Prepare(ctx context.Context, n int) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return SendCommand(ctx, h.comm, h.rank, protocol.OpNumber, []byte(strconv.Itoa(n)))
}

func (h *RankHandle) RequestAggregates(ctx context.Context, p utils.Partition,
	centroids utils.Points) ([]utils.PartialAggregate, error) {
	resp, err := h.exchange(ctx, protocol.OpKMeans, p, centroids)
	if err != nil {
		return nil, err
	}
	return h.codec.DecodeAggregates(resp, len(centroids))
}

func (h *RankHandle) RequestRelabeled(ctx context.Context, p utils.Partition,
	centroids utils.Points) (utils.Points, error) {
	resp, err := h.exchange(ctx, protocol.OpLocation, p, centroids)
	if err != nil {
		return nil, err
	}
	points, err := h.codec.DecodePoints(resp)
	if err != nil {
		return nil, err
	}
	if len(points) != p.Len() {
		return nil, utils.Malformed(nil, "expected %d points, got %d", p.Len(), len(points))
	}
	return points, nil
}

// Terminate stops the worker loop of the rank
func (h *RankHandle) Terminate(ctx context.Context) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return SendCommand(ctx, h.comm, h.rank, protocol.OpTerminate, nil)
}

// Close is a no-op: the communicator is owned by the caller
func (h *RankHandle) Close() error {
	return nil
}

func (h *RankHandle) exchange(ctx context.Context, op protocol.Opcode, p utils.Partition,
	centroids utils.Points) ([]byte, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	// marshalling
	payload, err := h.codec.EncodePayload(protocol.Payload{Start: p.Start, End: p.End, Centroids: centroids})
	if err != nil {
		return nil, err
	}
	// replies of a previous exchange that timed out must not be taken for this one
	if n := h.comm.Discard(h.rank, protocol.TagResultLength) + h.comm.Discard(h.rank, protocol.TagResult); n > 0 {
		utils.Debugf("--> %s: discarded %d stale message(s)", h, n)
	}
	if err = SendCommand(ctx, h.comm, h.rank, op, payload); err != nil {
		return nil, err
	}
	resp, err := RecvBuffer(ctx, h.comm, h.rank, protocol.TagResultLength, protocol.TagResult)
	if err != nil {
		return nil, err
	}
	body, err := protocol.CheckResponse(string(resp))
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}
