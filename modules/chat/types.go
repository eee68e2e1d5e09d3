package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxMessageLength bounds the message text when no limit is configured.
const DefaultMaxMessageLength = 4096

var (
	// ErrMalformedPayload is returned when an inbound frame is not a JSON object
	// with a string "message" field.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrNotAuthorized is returned by Open when the authorization policy rejects
	// the connection.
	ErrNotAuthorized = errors.New("not authorized for this room")
	// ErrConnectionClosed is returned by Receive after Close.
	ErrConnectionClosed = errors.New("connection closed")
)

var validate = validator.New()

// InboundPayload is the frame a client sends to post a message.
type InboundPayload struct {
	Message *string `json:"message" validate:"required"`
}

// ParsePayload extracts the message text from a raw inbound frame.
// An empty message is allowed; a missing or non-string one is not.
func ParsePayload(raw []byte, maxLength int) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrMalformedPayload)
	}

	// The "message" key must match exactly, case included.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	var payload InboundPayload
	if value, ok := fields["message"]; ok {
		if err := json.Unmarshal(value, &payload.Message); err != nil {
			return "", fmt.Errorf("%w: message must be a string", ErrMalformedPayload)
		}
	}
	if err := validate.Struct(payload); err != nil {
		return "", fmt.Errorf("%w: message field is required", ErrMalformedPayload)
	}

	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	message := *payload.Message
	if utf8.RuneCountInString(message) > maxLength {
		return "", fmt.Errorf("%w: message exceeds %d characters", ErrMalformedPayload, maxLength)
	}
	return message, nil
}
