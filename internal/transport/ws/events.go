package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vedran77/marketchat/internal/domain"
)

type FrameKind string

// Frame kinds received from the server.
const (
	KindTyping     FrameKind = "typing"
	KindPresence   FrameKind = "presence"
	KindNewMessage FrameKind = "new_message"
	KindMessage    FrameKind = "message"
	KindUnknown    FrameKind = "unknown"
)

var errNotObject = errors.New("frame is not a json object")

// Frame is a parsed server frame. Only the fields of its kind are set.
type Frame struct {
	Kind    FrameKind
	UserID  domain.ID
	Typing  bool
	Online  bool
	Message *domain.Message
}

// ContentFrame sends a chat message over the conversation socket.
type ContentFrame struct {
	Content string `json:"content"`
}

// TypingFrame tells the partner whether we are composing.
type TypingFrame struct {
	Typing bool `json:"typing"`
}

type envelope struct {
	Event   string          `json:"event"`
	UserID  domain.ID       `json:"user_id"`
	Typing  bool            `json:"typing"`
	Online  bool            `json:"online"`
	Message json.RawMessage `json:"message"`
}

// ParseFrame decodes a server frame. Typing, presence and new_message frames
// carry an "event" discriminator; anything else is read as a message, either
// bare or wrapped under "message". A message with no id, content or
// created_at is reported as KindUnknown.
func ParseFrame(data []byte) (Frame, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Frame{}, errNotObject
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("decoding frame: %w", err)
	}

	switch env.Event {
	case string(KindTyping):
		return Frame{Kind: KindTyping, UserID: env.UserID, Typing: env.Typing}, nil
	case string(KindPresence):
		return Frame{Kind: KindPresence, UserID: env.UserID, Online: env.Online}, nil
	case string(KindNewMessage):
		return Frame{Kind: KindNewMessage}, nil
	case "":
	default:
		return Frame{Kind: KindUnknown}, nil
	}

	payload := data
	if nested := bytes.TrimSpace(env.Message); len(nested) > 0 && nested[0] == '{' {
		payload = nested
	}

	var msg domain.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Frame{}, fmt.Errorf("decoding message frame: %w", err)
	}
	if msg.ID.IsZero() && msg.Content == "" && msg.CreatedAt.IsZero() {
		return Frame{Kind: KindUnknown}, nil
	}
	return Frame{Kind: KindMessage, Message: &msg}, nil
}
