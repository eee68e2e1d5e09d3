package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/course-chat/events"
)

// Module tallies chat events per room and serves the tallies to other modules.
type Module struct {
	tracker *Tracker
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		tracker: NewTracker(),
		logger:  logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// RegisterEventConsumers subscribes to the chat module's events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberJoinedV1, m.handleMemberJoined, m); err != nil {
		return fmt.Errorf("failed to register MemberJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberLeftV1, m.handleMemberLeft, m); err != nil {
		return fmt.Errorf("failed to register MemberLeft consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.ChatMessageSentV1, m.handleChatMessageSent, m); err != nil {
		return fmt.Errorf("failed to register ChatMessageSent consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", "MemberJoined,MemberLeft,ChatMessageSent")
	return nil
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceGetRoomActivity,
		json.Unmarshal,
		json.Marshal,
		m.getRoomActivity,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetRoomActivity, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceListRoomActivity,
		json.Unmarshal,
		json.Marshal,
		m.listRoomActivity,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListRoomActivity, err)
	}

	m.logger.Info("Registered services", "services", ServiceGetRoomActivity+","+ServiceListRoomActivity)
	return nil
}

func (m *Module) handleMemberJoined(_ context.Context, event events.MemberJoinedEvent, _ *mono.Msg) error {
	m.tracker.RecordJoin(event.RoomID)
	return nil
}

func (m *Module) handleMemberLeft(_ context.Context, event events.MemberLeftEvent, _ *mono.Msg) error {
	m.tracker.RecordLeave(event.RoomID)
	return nil
}

func (m *Module) handleChatMessageSent(_ context.Context, event events.ChatMessageSentEvent, _ *mono.Msg) error {
	m.tracker.RecordMessage(event.RoomID, event.Recipients, event.Timestamp)
	return nil
}

func (m *Module) getRoomActivity(_ context.Context, req GetRoomActivityRequest, _ *mono.Msg) (GetRoomActivityResponse, error) {
	a, found := m.tracker.Get(req.RoomID)
	return GetRoomActivityResponse{Activity: a, Found: found}, nil
}

func (m *Module) listRoomActivity(_ context.Context, _ ListRoomActivityRequest, _ *mono.Msg) (ListRoomActivityResponse, error) {
	return ListRoomActivityResponse{Rooms: m.tracker.List()}, nil
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Activity module stopped", "rooms", len(m.tracker.List()))
	return nil
}

// Tracker returns the underlying tracker.
func (m *Module) Tracker() *Tracker {
	return m.tracker
}
