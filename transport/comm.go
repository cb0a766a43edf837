package transport

import (
	"context"
	"sync"

	"github.com/WatchJani/K-means/protocol"
	"github.com/WatchJani/K-means/utils"
)

// Comm : rank-addressed point-to-point messaging, rank 0 is the coordinator
type Comm interface {
	Rank() int
	Size() int
	Send(ctx context.Context, dest int, tag int, data []byte) error
	Recv(ctx context.Context, src int, tag int) ([]byte, error)
	// Discard drops the messages already queued from src on tag and returns how many were dropped
	Discard(src int, tag int) int
	Close() error
}

// Barrier blocks until every rank of the communicator entered it
func Barrier(ctx context.Context, c Comm) error {
	if c.Rank() == 0 {
		// gather
		for r := 1; r < c.Size(); r++ {
			if _, err := c.Recv(ctx, r, protocol.TagBarrier); err != nil {
				return err
			}
		}
		// release
		for r := 1; r < c.Size(); r++ {
			if err := c.Send(ctx, r, protocol.TagBarrierRelease, nil); err != nil {
				return err
			}
		}
		return nil
	}
	if err := c.Send(ctx, 0, protocol.TagBarrier, nil); err != nil {
		return err
	}
	_, err := c.Recv(ctx, 0, protocol.TagBarrierRelease)
	return err
}

/*------------------------------------------------------ MAILBOX -----------------------------------------------------*/

const queueSize = 1024

type mailKey struct {
	src int
	tag int
}

// mailbox : per (source, tag) FIFO queues of a rank
type mailbox struct {
	mutex     sync.Mutex
	queues    map[mailKey]chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newMailbox() *mailbox {
	return &mailbox{
		queues: make(map[mailKey]chan []byte),
		closed: make(chan struct{}),
	}
}

func (m *mailbox) queue(src int, tag int) chan []byte {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	k := mailKey{src: src, tag: tag}
	q, ok := m.queues[k]
	if !ok {
		q = make(chan []byte, queueSize)
		m.queues[k] = q
	}
	return q
}

func (m *mailbox) deliver(src int, tag int, data []byte) {
	select {
	case m.queue(src, tag) <- data:
	case <-m.closed:
	}
}

// offer queues the message only when there is room for it
func (m *mailbox) offer(src int, tag int, data []byte) bool {
	select {
	case m.queue(src, tag) <- data:
		return true
	default:
		return false
	}
}

func (m *mailbox) receive(ctx context.Context, src int, tag int) ([]byte, error) {
	select {
	case data := <-m.queue(src, tag):
		return data, nil
	case <-ctx.Done():
		return nil, utils.Transport(ctx.Err(), "receive from rank %d (tag %d)", src, tag)
	case <-m.closed:
		return nil, utils.Transport(nil, "receive from rank %d (tag %d): communicator closed", src, tag)
	}
}

func (m *mailbox) discard(src int, tag int) int {
	q := m.queue(src, tag)
	n := 0
	for {
		select {
		case <-q:
			n++
		default:
			return n
		}
	}
}

func (m *mailbox) close() {
	m.closeOnce.Do(func() { close(m.closed) })
}

/*---------------------------------------------------- LOCAL WORLD ---------------------------------------------------*/

// LocalComm : in-process communicator, every rank is a goroutine of the same process
type LocalComm struct {
	rank  int
	boxes []*mailbox
}

var _ Comm = (*LocalComm)(nil)

// NewLocalWorld creates 'size' connected communicators, the i-th one having rank i
func NewLocalWorld(size int) []*LocalComm {
	boxes := make([]*mailbox, size)
	for i := range boxes {
		boxes[i] = newMailbox()
	}
	world := make([]*LocalComm, size)
	for i := range world {
		world[i] = &LocalComm{rank: i, boxes: boxes}
	}
	return world
}

func (c *LocalComm) Rank() int {
	return c.rank
}

func (c *LocalComm) Size() int {
	return len(c.boxes)
}

func (c *LocalComm) Send(ctx context.Context, dest int, tag int, data []byte) error {
	if dest < 0 || dest >= len(c.boxes) {
		return utils.Transport(nil, "send to rank %d: out of world of size %d", dest, len(c.boxes))
	}
	if err := ctx.Err(); err != nil {
		return utils.Transport(err, "send to rank %d", dest)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.boxes[dest].deliver(c.rank, tag, buf)
	return nil
}

func (c *LocalComm) Recv(ctx context.Context, src int, tag int) ([]byte, error) {
	return c.boxes[c.rank].receive(ctx, src, tag)
}

func (c *LocalComm) Discard(src int, tag int) int {
	return c.boxes[c.rank].discard(src, tag)
}

// Close stops the rank's mailbox; pending and future receives fail
func (c *LocalComm) Close() error {
	c.boxes[c.rank].close()
	return nil
}
