package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"golang.org/x/time/rate"

	domain "github.com/example/course-chat/domain/chat"
	"github.com/example/course-chat/modules/chat"
)

const rateLimitMessage = "Rate limit exceeded, please slow down"

// handleChat serves one WebSocket session at /ws/chat/:courseId.
//
// The read loop runs on the handler goroutine and the write pump on its own;
// the pump is the only goroutine that writes data frames to the socket.
func (m *APIModule) handleChat(c *websocket.Conn) {
	ctx := context.Background()
	roomID := c.Params("courseId")
	identity, ok := c.Locals(IdentityContextKey).(domain.Identity)
	if !ok {
		identity = domain.Anonymous()
	}

	conn, err := m.manager.Open(ctx, roomID, identity)
	if err != nil {
		m.logger.Warn("WebSocket rejected", "roomID", roomID, "error", err)
		m.writeClose(c, websocket.ClosePolicyViolation, "not authorized")
		return
	}

	readerDone := make(chan struct{})
	writerDone := make(chan struct{})
	go m.writePump(c, conn, readerDone, writerDone)

	code, reason := m.readLoop(ctx, c, conn)
	close(readerDone)

	m.manager.Close(ctx, conn)
	<-writerDone
	m.writeClose(c, code, reason)
}

// readLoop feeds inbound frames to the manager until the peer goes away or
// the session must end. It returns the close code to send.
func (m *APIModule) readLoop(ctx context.Context, c *websocket.Conn, conn *chat.Connection) (int, string) {
	c.SetReadLimit(m.cfg.MaxFrameBytes)
	_ = c.SetReadDeadline(time.Now().Add(m.cfg.PongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(m.cfg.PongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(m.cfg.RatePerSecond), m.cfg.RateBurst)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				m.logger.Warn("WebSocket read error", "connectionID", conn.ID(), "error", err)
			}
			return websocket.CloseNormalClosure, ""
		}

		if !limiter.Allow() {
			_ = conn.SendError(rateLimitMessage)
			continue
		}

		err = m.manager.Receive(ctx, conn, data)
		switch {
		case err == nil:
		case errors.Is(err, chat.ErrMalformedPayload):
			_ = conn.SendError(err.Error())
			if m.cfg.CloseOnMalformed {
				return websocket.CloseUnsupportedData, "malformed payload"
			}
		case errors.Is(err, chat.ErrConnectionClosed):
			// Dropped by the room; the write pump has already asked the peer to go.
			return websocket.CloseGoingAway, "connection dropped"
		default:
			m.logger.Error("Failed to handle inbound frame", "connectionID", conn.ID(), "error", err)
			return websocket.CloseInternalServerErr, "internal error"
		}
	}
}

// writePump drains the connection's outbound queue onto the socket and keeps
// the peer alive with pings.
func (m *APIModule) writePump(c *websocket.Conn, conn *chat.Connection, readerDone <-chan struct{}, done chan<- struct{}) {
	ticker := time.NewTicker(m.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case frame, ok := <-conn.Outbound():
			if !ok {
				select {
				case <-readerDone:
				default:
					// Removed from the room while the peer is still reading.
					m.writeClose(c, websocket.CloseGoingAway, "connection dropped")
					_ = c.SetReadDeadline(time.Now().Add(m.cfg.WriteWait))
				}
				return
			}
			_ = c.SetWriteDeadline(time.Now().Add(m.cfg.WriteWait))
			if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
				m.logger.Warn("WebSocket write failed", "connectionID", conn.ID(), "error", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(m.cfg.WriteWait))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

func (m *APIModule) writeClose(c *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(m.cfg.WriteWait))
}
