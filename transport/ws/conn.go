package ws

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn adapts a gorilla websocket to a contract.ConnectionHandle.
// gorilla allows one concurrent writer, so every write goes through mu.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
	closeOnce    sync.Once
	closeErr     error
}

var _ contract.ConnectionHandle = (*Conn)(nil)

func NewConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{ws: ws, writeTimeout: writeTimeout}
}

// Send writes the payload as one JSON text frame. The write deadline is the earliest
// of ctx's deadline and the configured write timeout.
func (c *Conn) Send(ctx context.Context, payload domain.Payload) error {
	return c.writeJSON(ctx, payload)
}

func (c *Conn) reply(ctx context.Context, reply Reply) error {
	return c.writeJSON(ctx, reply)
}

func (c *Conn) writeJSON(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

// Close sends a normal close frame and releases the socket. Safe to call twice.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.mu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
