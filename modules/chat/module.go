package chat

import (
	"context"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/course-chat/events"
)

// Module exposes the connection manager and reports chat activity on the EventBus.
type Module struct {
	manager  *Manager
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
	_ Observer                 = (*Module)(nil)
)

// NewModule creates a new chat module. The module observes its own manager so
// joins, leaves and messages become events.
func NewModule(rooms Rooms, logger types.Logger, opts ...Option) *Module {
	m := &Module{logger: logger}
	m.manager = NewManager(rooms, logger, append(opts, WithObserver(m))...)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MemberJoinedV1.ToBase(),
		events.MemberLeftV1.ToBase(),
		events.ChatMessageSentV1.ToBase(),
	}
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Chat module started")
	return nil
}

// Stop stops the module. Open connections are closed by the broadcast module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Chat module stopped")
	return nil
}

// Manager returns the connection manager used by the websocket handler.
func (m *Module) Manager() *Manager {
	return m.manager
}

// MemberJoined publishes a MemberJoined event.
func (m *Module) MemberJoined(_ context.Context, conn *Connection) {
	if m.eventBus == nil {
		return
	}
	identity := conn.Identity()
	event := events.MemberJoinedEvent{
		RoomID:        conn.RoomID(),
		ConnectionID:  conn.ID(),
		UserID:        identity.UserID,
		Username:      identity.DisplayName,
		Authenticated: identity.Authenticated,
		Timestamp:     conn.OpenedAt(),
	}
	if err := events.MemberJoinedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish MemberJoined event", "roomID", event.RoomID, "error", err)
	}
}

// MemberLeft publishes a MemberLeft event.
func (m *Module) MemberLeft(_ context.Context, conn *Connection) {
	if m.eventBus == nil {
		return
	}
	identity := conn.Identity()
	event := events.MemberLeftEvent{
		RoomID:       conn.RoomID(),
		ConnectionID: conn.ID(),
		UserID:       identity.UserID,
		Username:     identity.DisplayName,
		Timestamp:    time.Now(),
	}
	if err := events.MemberLeftV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish MemberLeft event", "roomID", event.RoomID, "error", err)
	}
}

// MessageSent publishes a ChatMessageSent event. The message text is not
// included; messages are not retained anywhere.
func (m *Module) MessageSent(_ context.Context, conn *Connection, recipients int) {
	if m.eventBus == nil {
		return
	}
	identity := conn.Identity()
	event := events.ChatMessageSentEvent{
		RoomID:       conn.RoomID(),
		ConnectionID: conn.ID(),
		UserID:       identity.UserID,
		Username:     identity.DisplayName,
		Recipients:   recipients,
		Timestamp:    time.Now(),
	}
	if err := events.ChatMessageSentV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish ChatMessageSent event", "roomID", event.RoomID, "error", err)
	}
}
