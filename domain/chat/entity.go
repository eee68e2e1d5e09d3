package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AnonymousName is used for both the display name and the user id of
// unauthenticated connections.
const AnonymousName = "Anonymous"

// ErrUnknownEventKind is returned when encoding an event whose kind has no wire form.
var ErrUnknownEventKind = errors.New("unknown event kind")

// Identity is the sender identity attached to a connection when it opens.
type Identity struct {
	DisplayName   string `json:"username"`
	UserID        string `json:"user_id"`
	Authenticated bool   `json:"authenticated"`
}

// Anonymous returns the identity used for unauthenticated sessions.
func Anonymous() Identity {
	return Identity{DisplayName: AnonymousName, UserID: AnonymousName}
}

// NewIdentity maps what the session layer knows about a user to an Identity.
// The id is stringified; unauthenticated sessions resolve to Anonymous.
func NewIdentity(authenticated bool, username string, id any) Identity {
	if !authenticated {
		return Anonymous()
	}
	userID := ""
	if id != nil {
		userID = fmt.Sprint(id)
	}
	return Identity{
		DisplayName:   username,
		UserID:        userID,
		Authenticated: true,
	}
}

// Envelope is one chat message together with its sender. It is never persisted.
type Envelope struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

// NewEnvelope builds an envelope for a message sent by the given identity.
func NewEnvelope(message string, sender Identity) Envelope {
	return Envelope{
		Message:  message,
		Username: sender.DisplayName,
		UserID:   sender.UserID,
	}
}

// EventKind tags the variants of Event.
type EventKind int

const (
	// EventChatMessage carries an Envelope posted to a room.
	EventChatMessage EventKind = iota + 1
)

func (k EventKind) String() string {
	switch k {
	case EventChatMessage:
		return "chat_message"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to every member of a room.
type Event struct {
	Kind     EventKind
	Envelope Envelope
}

// ChatMessage wraps an envelope as a chat message event.
func ChatMessage(env Envelope) Event {
	return Event{Kind: EventChatMessage, Envelope: env}
}

// ChatFrame is the outbound wire form of a chat message.
type ChatFrame struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

// ErrorFrame is sent to a single connection whose input was rejected.
type ErrorFrame struct {
	Error string `json:"error"`
}

// Encode renders the event as a text frame for the socket.
func (e Event) Encode() ([]byte, error) {
	switch e.Kind {
	case EventChatMessage:
		username := e.Envelope.Username
		if username == "" {
			username = AnonymousName
		}
		return json.Marshal(ChatFrame{
			Message:  e.Envelope.Message,
			Username: username,
			UserID:   e.Envelope.UserID,
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventKind, e.Kind)
	}
}

// EncodeError renders an error frame.
func EncodeError(msg string) []byte {
	data, err := json.Marshal(ErrorFrame{Error: msg})
	if err != nil {
		return []byte(`{"error":"internal error"}`)
	}
	return data
}
