package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeTimeout bounds both the enqueue wait and the socket write.
	writeTimeout = 5 * time.Second
	// sendBuffer absorbs fan-out bursts without blocking broadcasters.
	sendBuffer = 100
)

// Connection wraps a WebSocket with a single writer goroutine so concurrent
// broadcasts never race on the underlying socket. The identity is bound at
// construction, after the authentication gate, and never changes.
type Connection struct {
	conn      *websocket.Conn
	writeCh   chan []byte
	id        string
	userID    string
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection creates a connection wrapper for an authenticated user and
// starts its writer goroutine.
func NewConnection(conn *websocket.Conn, userID string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		conn:    conn,
		writeCh: make(chan []byte, sendBuffer),
		id:      uuid.NewString(),
		userID:  userID,
		ctx:     ctx,
		cancel:  cancel,
	}

	go c.writeLoop()

	return c
}

// writeLoop is the single writer for the underlying socket. The channel is
// never closed: concurrent senders race with shutdown, and they bail out on
// the context instead.
func (c *Connection) writeLoop() {
	defer c.cancel()

	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON queues a JSON message for delivery. It fails fast when the
// connection is closed or the client stops draining its buffer.
func (c *Connection) WriteJSON(v any) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close shuts the connection down. Idempotent.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// GetID returns the unique id of this physical connection.
func (c *Connection) GetID() string {
	return c.id
}

// GetUserID returns the identity bound to this connection.
func (c *Connection) GetUserID() string {
	return c.userID
}

// Done is closed when the connection shuts down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}
