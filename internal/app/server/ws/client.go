package ws

import (
	"context"
	"errors"
	"sync"
)

// Client is the outbound half of one connection: a buffered channel
// drained by a single writer goroutine, so broadcasts never block on a
// slow peer longer than the buffer allows.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *WebSocket
	out    chan []byte
	once   sync.Once
}

func NewClient(parent context.Context, ws *WebSocket) *Client {
	ctx, cancel := context.WithCancel(parent)
	c := &Client{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		out:    make(chan []byte, 256),
	}
	go c.writeLoop()
	return c
}

func (c *Client) Send(ctx context.Context, data []byte) error {
	select {
	case c.out <- data:
		return nil
	case <-c.ctx.Done():
		return errors.New("client closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseWithCode delivers the close reason to the peer, then tears the
// transport down. Safe to call more than once.
func (c *Client) CloseWithCode(code int, reason string) {
	c.once.Do(func() {
		_ = c.ws.WriteClose(code, reason)
		c.cancel()
		c.ws.Close()
	})
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
