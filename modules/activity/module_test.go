package activity

import (
	"context"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/course-chat/events"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func TestModule_HandlesEvents(t *testing.T) {
	ctx := context.Background()
	m := NewModule(&mockLogger{})
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, m.handleMemberJoined(ctx, events.MemberJoinedEvent{RoomID: "101"}, nil))
	require.NoError(t, m.handleMemberJoined(ctx, events.MemberJoinedEvent{RoomID: "101"}, nil))
	require.NoError(t, m.handleChatMessageSent(ctx, events.ChatMessageSentEvent{RoomID: "101", Recipients: 2, Timestamp: at}, nil))
	require.NoError(t, m.handleMemberLeft(ctx, events.MemberLeftEvent{RoomID: "101"}, nil))
	require.NoError(t, m.handleMemberJoined(ctx, events.MemberJoinedEvent{RoomID: "202"}, nil))

	resp, err := m.getRoomActivity(ctx, GetRoomActivityRequest{RoomID: "101"}, nil)
	require.NoError(t, err)
	assert.True(t, resp.Found)
	assert.Equal(t, RoomActivity{
		RoomID:        "101",
		Joins:         2,
		Leaves:        1,
		Messages:      1,
		Deliveries:    2,
		LastMessageAt: at,
	}, resp.Activity)

	list, err := m.listRoomActivity(ctx, ListRoomActivityRequest{}, nil)
	require.NoError(t, err)
	require.Len(t, list.Rooms, 2)
	assert.Equal(t, "101", list.Rooms[0].RoomID)
	assert.Equal(t, "202", list.Rooms[1].RoomID)
}

func TestModule_UnknownRoom(t *testing.T) {
	m := NewModule(&mockLogger{})

	resp, err := m.getRoomActivity(context.Background(), GetRoomActivityRequest{RoomID: "999"}, nil)
	require.NoError(t, err)
	assert.False(t, resp.Found)
	assert.Equal(t, "999", resp.Activity.RoomID)
}

func TestTracker_LastMessageAtNeverGoesBack(t *testing.T) {
	tr := NewTracker()
	later := time.Now()
	earlier := later.Add(-time.Minute)

	tr.RecordMessage("101", 1, later)
	tr.RecordMessage("101", 1, earlier)

	a, ok := tr.Get("101")
	require.True(t, ok)
	assert.Equal(t, later, a.LastMessageAt)
	assert.Equal(t, 2, a.Messages)
}

func TestModule_Lifecycle(t *testing.T) {
	m := NewModule(&mockLogger{})
	assert.Equal(t, "activity", m.Name())
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Stop(context.Background()))
	assert.NotNil(t, m.Tracker())
}
