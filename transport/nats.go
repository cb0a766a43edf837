package transport

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WatchJani/K-means/utils"
)

const (
	tagHello   = 96
	tagWelcome = 97
	helloEvery = 200 * time.Millisecond
)

// NatsComm : communicator carried by NATS subjects <prefix>.<dest>.<src>.<tag>
type NatsComm struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	prefix string
	rank   int
	size   int
	box    *mailbox
	owned  bool // the connection was dialled by the communicator
}

var _ Comm = (*NatsComm)(nil)

// DialNats connects to the NATS server at url and joins the world as 'rank'
func DialNats(url string, prefix string, rank int, size int, opts ...nats.Option) (*NatsComm, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, utils.Transport(err, "nats connection to %s", url)
	}
	c, err := NewNatsComm(nc, prefix, rank, size)
	if err != nil {
		nc.Close()
		return nil, err
	}
	c.owned = true
	return c, nil
}

// NewNatsComm joins the world as 'rank' over an existing connection
func NewNatsComm(nc *nats.Conn, prefix string, rank int, size int) (*NatsComm, error) {
	if rank < 0 || rank >= size {
		return nil, utils.Configuration("rank %d out of world of size %d", rank, size)
	}
	c := &NatsComm{
		nc:     nc,
		prefix: prefix,
		rank:   rank,
		size:   size,
		box:    newMailbox(),
	}
	sub, err := nc.Subscribe(fmt.Sprintf("%s.%d.>", prefix, rank), c.onMessage)
	if err != nil {
		return nil, utils.Transport(err, "nats subscription")
	}
	c.sub = sub
	// make sure the subscription is registered before anyone is told about this rank
	if err = nc.Flush(); err != nil {
		return nil, utils.Transport(err, "nats flush")
	}
	return c, nil
}

func (c *NatsComm) subject(dest int, src int, tag int) string {
	return fmt.Sprintf("%s.%d.%d.%d", c.prefix, dest, src, tag)
}

// messages are dispatched sequentially per subscription, which keeps the per-source order
func (c *NatsComm) onMessage(m *nats.Msg) {
	parts := strings.Split(strings.TrimPrefix(m.Subject, c.prefix+"."), ".")
	if len(parts) != 3 {
		log.Printf("--> nats: dropping message on unexpected subject %s", m.Subject)
		return
	}
	src, err1 := strconv.Atoi(parts[1])
	tag, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		log.Printf("--> nats: dropping message on unexpected subject %s", m.Subject)
		return
	}
	// hellos repeat until the welcome, surplus ones must not stall the subscription
	if tag == tagHello {
		c.box.offer(src, tag, m.Data)
		return
	}
	c.box.deliver(src, tag, m.Data)
}

func (c *NatsComm) Rank() int {
	return c.rank
}

func (c *NatsComm) Size() int {
	return c.size
}

func (c *NatsComm) Send(ctx context.Context, dest int, tag int, data []byte) error {
	if dest < 0 || dest >= c.size {
		return utils.Transport(nil, "send to rank %d: out of world of size %d", dest, c.size)
	}
	if err := ctx.Err(); err != nil {
		return utils.Transport(err, "send to rank %d", dest)
	}
	if err := c.nc.Publish(c.subject(dest, c.rank, tag), data); err != nil {
		return utils.Transport(err, "publish to rank %d", dest)
	}
	return nil
}

func (c *NatsComm) Recv(ctx context.Context, src int, tag int) ([]byte, error) {
	return c.box.receive(ctx, src, tag)
}

func (c *NatsComm) Discard(src int, tag int) int {
	return c.box.discard(src, tag)
}

// Handshake waits until every rank is subscribed: NATS drops messages nobody listens to yet,
// so workers keep saying hello until the coordinator welcomes them
func (c *NatsComm) Handshake(ctx context.Context) error {
	if c.rank == 0 {
		for r := 1; r < c.size; r++ {
			if _, err := c.Recv(ctx, r, tagHello); err != nil {
				return err
			}
		}
		for r := 1; r < c.size; r++ {
			c.Discard(r, tagHello)
			if err := c.Send(ctx, r, tagWelcome, nil); err != nil {
				return err
			}
		}
		return nil
	}
	for {
		if err := c.Send(ctx, 0, tagHello, nil); err != nil {
			return err
		}
		wait, cancel := context.WithTimeout(ctx, helloEvery)
		_, err := c.Recv(wait, 0, tagWelcome)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return utils.Transport(ctx.Err(), "handshake with the coordinator")
		}
	}
}

func (c *NatsComm) Close() error {
	c.box.close()
	var err error
	if c.sub != nil {
		err = c.sub.Unsubscribe()
	}
	if c.owned {
		c.nc.Close()
	}
	return err
}
