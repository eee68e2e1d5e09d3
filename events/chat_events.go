package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// ChatMessageSentEvent is emitted after a message has been fanned out to a room.
type ChatMessageSentEvent struct {
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Recipients   int       `json:"recipients"`
	Timestamp    time.Time `json:"timestamp"`
}

// MemberJoinedEvent is emitted when a connection joins a room.
type MemberJoinedEvent struct {
	RoomID        string    `json:"room_id"`
	ConnectionID  string    `json:"connection_id"`
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	Authenticated bool      `json:"authenticated"`
	Timestamp     time.Time `json:"timestamp"`
}

// MemberLeftEvent is emitted when a connection leaves a room.
type MemberLeftEvent struct {
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Timestamp    time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	ChatMessageSentV1 = helper.EventDefinition[ChatMessageSentEvent](
		"chat",
		"ChatMessageSent",
		"v1",
	)

	MemberJoinedV1 = helper.EventDefinition[MemberJoinedEvent](
		"chat",
		"MemberJoined",
		"v1",
	)

	MemberLeftV1 = helper.EventDefinition[MemberLeftEvent](
		"chat",
		"MemberLeft",
		"v1",
	)
)
