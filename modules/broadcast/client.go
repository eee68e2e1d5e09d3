package broadcast

import (
	"errors"
	"sync"

	domain "github.com/example/course-chat/domain/chat"
)

var (
	// ErrClientClosed is returned when sending to a client that has been closed.
	ErrClientClosed = errors.New("client closed")
	// ErrSendBufferFull is returned when a client is not draining its queue.
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client is one connection's membership in a room. Frames sent to it are
// queued and written to the socket by a single writer that drains Outbound.
type Client struct {
	ID       string
	RoomID   string
	Identity domain.Identity

	send   chan []byte
	closed bool
	mu     sync.Mutex
}

// NewClient creates a client with a send queue of the given capacity.
func NewClient(id, roomID string, identity domain.Identity, buffer int) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	return &Client{
		ID:       id,
		RoomID:   roomID,
		Identity: identity,
		send:     make(chan []byte, buffer),
	}
}

// Send queues a frame without blocking.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Outbound is drained by the connection's writer. It is closed by Close.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// Close stops the client from accepting frames. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
