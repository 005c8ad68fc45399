// Package chat contains the core concepts of the chat relay.
// Messages are immutable values, validated once at the decode boundary.
package chat

import (
	"encoding/json"
	"fmt"

	"streamroom/errors"
)

// Kind discriminates the message variants carried on the wire.
type Kind string

const (
	// KindJoin is emitted when a user joins the chat.
	KindJoin Kind = "join"
	// KindLeave is emitted when a user leaves the chat.
	KindLeave Kind = "leave"
	// KindText is emitted when a user sends a text message.
	KindText Kind = "text"
	// KindSetUsername requests a username change. Declared by the wire
	// contract but unused by the current flow.
	KindSetUsername Kind = "set_username"
	// KindUsernameTaken is sent back when the requested username is taken.
	KindUsernameTaken Kind = "username_taken"
)

// Message is the unit of communication between clients and the relay.
// It is copied by value when broadcast, never mutated after construction.
type Message struct {
	Kind     Kind
	Username string
	Content  string // only meaningful when Kind == KindText
}

func NewJoin(username string) Message {
	return Message{Kind: KindJoin, Username: username}
}

func NewLeave(username string) Message {
	return Message{Kind: KindLeave, Username: username}
}

func NewText(username, content string) Message {
	return Message{Kind: KindText, Username: username, Content: content}
}

func NewUsernameTaken(username string) Message {
	return Message{Kind: KindUsernameTaken, Username: username}
}

// wireMessage is the JSON shape of a Message. Content is a pointer so that
// its absence survives a round trip for the kinds that forbid it.
type wireMessage struct {
	Type     string  `json:"type"`
	Username string  `json:"username"`
	Content  *string `json:"content,omitempty"`
}

// Decode parses and validates one wire frame. It is the single validation
// point of the relay: a Message obtained from Decode is well formed and no
// downstream component re-checks its shape. All failures wrap
// errors.ErrMessageDecode.
func Decode(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("%w: %v", errors.ErrMessageDecode, err)
	}

	kind := Kind(w.Type)
	switch kind {
	case KindJoin, KindLeave, KindSetUsername, KindUsernameTaken:
		if w.Content != nil {
			return Message{}, fmt.Errorf("%w: %q forbids a content field", errors.ErrMessageDecode, w.Type)
		}
		return Message{Kind: kind, Username: w.Username}, nil
	case KindText:
		if w.Content == nil {
			return Message{}, fmt.Errorf("%w: %q requires a content field", errors.ErrMessageDecode, w.Type)
		}
		return Message{Kind: kind, Username: w.Username, Content: *w.Content}, nil
	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", errors.ErrMessageDecode, w.Type)
	}
}

// Encode serializes the message to its wire frame.
func (m Message) Encode() ([]byte, error) {
	w := wireMessage{Type: string(m.Kind), Username: m.Username}
	if m.Kind == KindText {
		w.Content = &m.Content
	}
	return json.Marshal(w)
}
