package api

import (
	"slices"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/example/course-chat/modules/activity"
)

// setupRoutes configures all HTTP and WebSocket routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	// Health check
	app.Get("/health", m.healthHandler)

	// WebSocket endpoint. The course id is taken verbatim, empty included.
	ws := app.Group("/ws", UpgradeMiddleware(), IdentityMiddleware(m.identity, m.logger))
	ws.Get("/chat/:courseId?", websocket.New(m.handleChat))

	// REST API v1
	api := app.Group("/api/v1")
	api.Get("/rooms", m.listRooms)
	api.Get("/rooms/:id", m.getRoom)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
			"rooms":             m.hub.RoomCount(),
		},
	})
}

// listRooms handles GET /api/v1/rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	tallies := map[string]activity.RoomActivity{}
	if m.activity != nil {
		rooms, err := m.activity.ListRoomActivity(c.UserContext())
		if err != nil {
			m.logger.Warn("Room activity unavailable", "error", err)
		} else {
			tallies = lo.KeyBy(rooms, func(a activity.RoomActivity) string { return a.RoomID })
		}
	}

	ids := m.hub.Rooms()
	slices.Sort(ids)
	response := RoomListResponse{
		Rooms: make([]RoomResponse, 0, len(ids)),
		Total: len(ids),
	}
	for _, id := range ids {
		room := RoomResponse{
			ID:      id,
			Members: m.hub.RoomClientCount(id),
		}
		if a, ok := tallies[id]; ok {
			room.Activity = toActivityResponse(a)
		}
		response.Rooms = append(response.Rooms, room)
	}

	return c.JSON(response)
}

// getRoom handles GET /api/v1/rooms/:id.
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	roomID := c.Params("id")

	room := RoomResponse{
		ID:           roomID,
		Members:      m.hub.RoomClientCount(roomID),
		Participants: m.hub.RoomMembers(roomID),
	}

	found := room.Members > 0
	if m.activity != nil {
		a, ok, err := m.activity.GetRoomActivity(c.UserContext(), roomID)
		if err != nil {
			m.logger.Warn("Room activity unavailable", "roomID", roomID, "error", err)
		} else if ok {
			room.Activity = toActivityResponse(a)
			found = true
		}
	}

	if !found {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Room not found",
		})
	}
	return c.JSON(room)
}

func toActivityResponse(a activity.RoomActivity) *ActivityResponse {
	resp := &ActivityResponse{
		Joins:      a.Joins,
		Leaves:     a.Leaves,
		Messages:   a.Messages,
		Deliveries: a.Deliveries,
	}
	if !a.LastMessageAt.IsZero() {
		at := a.LastMessageAt
		resp.LastMessageAt = &at
	}
	return resp
}
