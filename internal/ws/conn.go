package ws

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"chatwire.app/server/common/id"
	"chatwire.app/server/internal/event"
)

const (
	// outboundBuffer bounds the per-connection send queue. A peer that
	// cannot drain this many events is considered dead.
	outboundBuffer = 64

	writeTimeout = 10 * time.Second
)

var errConnClosed = errors.New("connection closed")

// Conn wraps a websocket with a single writer goroutine and a bounded
// outbound queue, so event producers never block on a slow peer.
type Conn struct {
	id  string
	ws  *websocket.Conn
	out chan event.Event

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{
		id:   strconv.FormatInt(id.New(), 10),
		ws:   ws,
		out:  make(chan event.Event, outboundBuffer),
		done: make(chan struct{}),
	}
}

// ID identifies this connection instance in logs.
func (c *Conn) ID() string {
	return c.id
}

// Send enqueues an event for delivery. It never blocks: a full queue or a
// closed connection drops the event and reports an error.
func (c *Conn) Send(e event.Event) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.out <- e:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		// Queue full; the write pump will notice the dead peer soon enough.
		return errors.New("outbound queue full")
	}
}

// writePump drains the outbound queue onto the wire. It exits when the
// connection closes or a write fails.
func (c *Conn) writePump(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case e := <-c.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.ws, e)
			cancel()
			if err != nil {
				c.close(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		}
	}
}

func (c *Conn) read(ctx context.Context, v any) error {
	return wsjson.Read(ctx, c.ws, v)
}

func (c *Conn) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close(code, reason)
	})
}
