package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"

	domain "github.com/example/course-chat/domain/chat"
	"github.com/example/course-chat/modules/broadcast"
)

// Rooms is the room membership and fan-out the manager drives.
type Rooms interface {
	Join(roomID string, client *broadcast.Client)
	Leave(roomID, clientID string)
	Publish(roomID string, env domain.Envelope) int
}

// AuthorizationPolicy decides whether an identity may open a connection to a room.
type AuthorizationPolicy func(ctx context.Context, roomID string, identity domain.Identity) error

// AllowAll accepts every connection.
func AllowAll(context.Context, string, domain.Identity) error {
	return nil
}

// Observer is told about connection lifecycle and message activity.
type Observer interface {
	MemberJoined(ctx context.Context, conn *Connection)
	MemberLeft(ctx context.Context, conn *Connection)
	MessageSent(ctx context.Context, conn *Connection, recipients int)
}

type noopObserver struct{}

func (noopObserver) MemberJoined(context.Context, *Connection)     {}
func (noopObserver) MemberLeft(context.Context, *Connection)       {}
func (noopObserver) MessageSent(context.Context, *Connection, int) {}

// Connection is one client's session in a room. The room and identity are
// fixed when the connection opens.
type Connection struct {
	client    *broadcast.Client
	openedAt  time.Time
	closeOnce sync.Once
}

// ID returns the connection handle.
func (c *Connection) ID() string { return c.client.ID }

// RoomID returns the room the connection belongs to.
func (c *Connection) RoomID() string { return c.client.RoomID }

// Identity returns the sender identity attached at open time.
func (c *Connection) Identity() domain.Identity { return c.client.Identity }

// OpenedAt returns when the connection was opened.
func (c *Connection) OpenedAt() time.Time { return c.openedAt }

// Outbound yields frames to write to the socket. It is closed when the
// connection is closed or dropped by the room for failing to keep up.
func (c *Connection) Outbound() <-chan []byte { return c.client.Outbound() }

// Closed reports whether the connection no longer accepts frames.
func (c *Connection) Closed() bool { return c.client.Closed() }

// SendError queues an error frame for this connection only.
func (c *Connection) SendError(msg string) error {
	return c.client.Send(domain.EncodeError(msg))
}

// Option configures a Manager.
type Option func(*Manager)

// WithAuthorization installs a policy checked before a connection joins its room.
func WithAuthorization(policy AuthorizationPolicy) Option {
	return func(m *Manager) {
		if policy != nil {
			m.authorize = policy
		}
	}
}

// WithObserver installs a lifecycle observer.
func WithObserver(observer Observer) Option {
	return func(m *Manager) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// WithSendBuffer sets the per-connection outbound queue size.
func WithSendBuffer(size int) Option {
	return func(m *Manager) {
		m.sendBuffer = size
	}
}

// WithMaxMessageLength sets the longest accepted message, in characters.
func WithMaxMessageLength(n int) Option {
	return func(m *Manager) {
		m.maxMessageLength = n
	}
}

// Manager binds socket lifecycles to room membership.
type Manager struct {
	rooms            Rooms
	authorize        AuthorizationPolicy
	observer         Observer
	sendBuffer       int
	maxMessageLength int
	logger           types.Logger
}

// NewManager creates a Manager over the given rooms.
func NewManager(rooms Rooms, logger types.Logger, opts ...Option) *Manager {
	m := &Manager{
		rooms:            rooms,
		authorize:        AllowAll,
		observer:         noopObserver{},
		sendBuffer:       256,
		maxMessageLength: DefaultMaxMessageLength,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open registers a new connection in the room. The room id is used as given.
func (m *Manager) Open(ctx context.Context, roomID string, identity domain.Identity) (*Connection, error) {
	if err := m.authorize(ctx, roomID, identity); err != nil {
		m.logger.Warn("Connection rejected", "roomID", roomID, "userID", identity.UserID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNotAuthorized, err)
	}

	client := broadcast.NewClient(uuid.New().String(), roomID, identity, m.sendBuffer)
	conn := &Connection{client: client, openedAt: time.Now()}
	m.rooms.Join(roomID, client)
	m.observer.MemberJoined(ctx, conn)

	m.logger.Info("Connection opened",
		"connectionID", conn.ID(),
		"roomID", roomID,
		"username", identity.DisplayName)
	return conn, nil
}

// Close removes the connection from its room and stops its outbound queue.
// Closing a nil or already closed connection does nothing.
func (m *Manager) Close(ctx context.Context, conn *Connection) {
	if conn == nil || conn.client == nil {
		return
	}
	conn.closeOnce.Do(func() {
		m.rooms.Leave(conn.RoomID(), conn.ID())
		conn.client.Close()
		m.observer.MemberLeft(ctx, conn)

		m.logger.Info("Connection closed",
			"connectionID", conn.ID(),
			"roomID", conn.RoomID(),
			"duration", time.Since(conn.openedAt).String())
	})
}

// Receive parses an inbound frame and fans the message out to the
// connection's room, sender included. It returns ErrMalformedPayload for
// frames without a string "message" field; nothing is published then.
func (m *Manager) Receive(ctx context.Context, conn *Connection, raw []byte) error {
	if conn == nil || conn.client == nil || conn.Closed() {
		return ErrConnectionClosed
	}

	message, err := ParsePayload(raw, m.maxMessageLength)
	if err != nil {
		m.logger.Debug("Rejected inbound frame", "connectionID", conn.ID(), "error", err)
		return err
	}

	env := domain.NewEnvelope(message, conn.Identity())
	recipients := m.rooms.Publish(conn.RoomID(), env)
	m.observer.MessageSent(ctx, conn, recipients)
	return nil
}
