package broadcast

import (
	"errors"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/samber/lo"

	domain "github.com/example/course-chat/domain/chat"
)

// Hub tracks which clients are in which room and fans events out to them.
// Rooms exist only while they have members.
type Hub struct {
	rooms  map[string]map[string]*Client // roomID -> clientID -> Client
	mu     sync.RWMutex
	logger types.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]*Client),
		logger: logger,
	}
}

// Join adds a client to a room, creating the room if needed.
func (h *Hub) Join(roomID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[roomID] = members
	}
	members[client.ID] = client
	h.logger.Debug("Client joined room", "clientID", client.ID, "roomID", roomID, "members", len(members))
}

// Leave removes a client from a room. Unknown rooms and clients are ignored.
func (h *Hub) Leave(roomID, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(roomID, clientID)
}

func (h *Hub) leaveLocked(roomID, clientID string) bool {
	members, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := members[clientID]; !ok {
		return false
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
	h.logger.Debug("Client left room", "clientID", clientID, "roomID", roomID, "members", len(members))
	return true
}

// Publish delivers a chat message to every client in the room at the time of
// the call, the sender included. It returns the number of clients reached.
func (h *Hub) Publish(roomID string, env domain.Envelope) int {
	return h.Broadcast(roomID, domain.ChatMessage(env))
}

// Broadcast encodes the event once and queues it for each member of the room.
// Members that cannot take the frame are dropped from the room and closed.
func (h *Hub) Broadcast(roomID string, event domain.Event) int {
	frame, err := event.Encode()
	if err != nil {
		h.logger.Error("Failed to encode broadcast event", "roomID", roomID, "kind", event.Kind.String(), "error", err)
		return 0
	}

	recipients := h.snapshot(roomID)
	var failed []*Client
	delivered := 0
	for _, client := range recipients {
		if err := client.Send(frame); err != nil {
			if errors.Is(err, ErrClientClosed) {
				// Closed between the snapshot and the send: an ordinary disconnect.
				h.logger.Debug("Skipped closed client", "clientID", client.ID, "roomID", roomID)
			} else {
				h.logger.Warn("Failed to deliver to client", "clientID", client.ID, "roomID", roomID, "error", err)
			}
			failed = append(failed, client)
			continue
		}
		delivered++
	}

	h.removeFailed(roomID, failed)
	return delivered
}

func (h *Hub) snapshot(roomID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Values(h.rooms[roomID])
}

func (h *Hub) removeFailed(roomID string, failed []*Client) {
	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	for _, client := range failed {
		// Only drop the exact client we failed on; the id may have rejoined.
		if current, ok := h.rooms[roomID][client.ID]; ok && current == client {
			h.leaveLocked(roomID, client.ID)
		}
	}
	h.mu.Unlock()

	for _, client := range failed {
		client.Close()
	}
}

// Shutdown closes every client and empties the registry.
func (h *Hub) Shutdown() int {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]map[string]*Client)
	h.mu.Unlock()

	closed := 0
	for _, members := range rooms {
		for _, client := range members {
			client.Close()
			closed++
		}
	}
	h.logger.Info("Hub shut down", "closedClients", closed)
	return closed
}

// Members returns the clients currently in a room.
func (h *Hub) Members(roomID string) []*Client {
	return h.snapshot(roomID)
}

// RoomMembers returns the identities of the clients currently in a room.
func (h *Hub) RoomMembers(roomID string) []domain.Identity {
	return lo.Map(h.snapshot(roomID), func(c *Client, _ int) domain.Identity {
		return c.Identity
	})
}

// IsMember reports whether the client is in the room.
func (h *Hub) IsMember(roomID, clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID][clientID]
	return ok
}

// ClientCount returns the number of joined clients across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.SumBy(lo.Values(h.rooms), func(members map[string]*Client) int {
		return len(members)
	})
}

// RoomCount returns the number of rooms with at least one member.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// RoomClientCount returns the number of clients in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Rooms returns the ids of all rooms with members.
func (h *Hub) Rooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Keys(h.rooms)
}
