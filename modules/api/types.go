package api

import (
	"time"

	domain "github.com/example/course-chat/domain/chat"
)

// RoomResponse is the API response for a room.
type RoomResponse struct {
	ID           string            `json:"id"`
	Members      int               `json:"members"`
	Participants []domain.Identity `json:"participants,omitempty"`
	Activity     *ActivityResponse `json:"activity,omitempty"`
}

// RoomListResponse is the API response for listing rooms.
type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
	Total int            `json:"total"`
}

// ActivityResponse is the API view of a room's running tally.
type ActivityResponse struct {
	Joins         int        `json:"joins"`
	Leaves        int        `json:"leaves"`
	Messages      int        `json:"messages"`
	Deliveries    int        `json:"deliveries"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
