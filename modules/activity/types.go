package activity

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Service names provided by the activity module.
const (
	ServiceGetRoomActivity  = "get-room-activity"
	ServiceListRoomActivity = "list-room-activity"
)

// RoomActivity is the running tally of what happened in a room since startup.
type RoomActivity struct {
	RoomID        string    `json:"room_id"`
	Joins         int       `json:"joins"`
	Leaves        int       `json:"leaves"`
	Messages      int       `json:"messages"`
	Deliveries    int       `json:"deliveries"`
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
}

// GetRoomActivityRequest asks for one room's tally.
type GetRoomActivityRequest struct {
	RoomID string `json:"room_id"`
}

// GetRoomActivityResponse carries one room's tally.
type GetRoomActivityResponse struct {
	Activity RoomActivity `json:"activity"`
	Found    bool         `json:"found"`
}

// ListRoomActivityRequest asks for every room's tally.
type ListRoomActivityRequest struct{}

// ListRoomActivityResponse carries every room's tally, ordered by room id.
type ListRoomActivityResponse struct {
	Rooms []RoomActivity `json:"rooms"`
}

// Tracker keeps per-room counters in memory.
type Tracker struct {
	mu    sync.RWMutex
	rooms map[string]*RoomActivity
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{rooms: make(map[string]*RoomActivity)}
}

func (t *Tracker) room(roomID string) *RoomActivity {
	a, ok := t.rooms[roomID]
	if !ok {
		a = &RoomActivity{RoomID: roomID}
		t.rooms[roomID] = a
	}
	return a
}

// RecordJoin counts a join.
func (t *Tracker) RecordJoin(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.room(roomID).Joins++
}

// RecordLeave counts a leave.
func (t *Tracker) RecordLeave(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.room(roomID).Leaves++
}

// RecordMessage counts a message and the number of clients it reached.
func (t *Tracker) RecordMessage(roomID string, recipients int, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.room(roomID)
	a.Messages++
	a.Deliveries += recipients
	if at.After(a.LastMessageAt) {
		a.LastMessageAt = at
	}
}

// Get returns a copy of a room's tally.
func (t *Tracker) Get(roomID string) (RoomActivity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.rooms[roomID]
	if !ok {
		return RoomActivity{RoomID: roomID}, false
	}
	return *a, true
}

// List returns copies of all tallies ordered by room id.
func (t *Tracker) List() []RoomActivity {
	t.mu.RLock()
	result := lo.Map(lo.Values(t.rooms), func(a *RoomActivity, _ int) RoomActivity {
		return *a
	})
	t.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].RoomID < result[j].RoomID
	})
	return result
}
