package service

import (
	"time"

	"roomchat/internal/domain"
)

// Event type discriminators carried in the "type" field of every outbound
// frame.
const (
	EventMessage     = "message"
	EventUserStatus  = "user_status"
	EventChatHistory = "chat_history"
	EventTyping      = "typing"
	EventError       = "error"
)

// MessagePayload is the wire shape of one message. The same shape is used for
// live broadcasts and for history replay so one renderer handles both.
// System join/leave notices use it too, with a zero ID since they are never
// persisted.
type MessagePayload struct {
	ID        int64     `json:"id,omitempty"`
	Room      string    `json:"room"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageEvent struct {
	Type string `json:"type"`
	MessagePayload
}

type UserStatusEvent struct {
	Type        string   `json:"type"`
	Room        string   `json:"room"`
	OnlineUsers []string `json:"online_users"`
}

type ChatHistoryEvent struct {
	Type     string           `json:"type"`
	Room     string           `json:"room"`
	Messages []MessagePayload `json:"messages"`
}

type TypingEvent struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	Username string `json:"username"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func payloadFor(m *domain.Message) MessagePayload {
	return MessagePayload{
		ID:        m.ID,
		Room:      m.RoomID,
		Sender:    m.Sender,
		Text:      m.Body,
		Kind:      string(m.Kind),
		Timestamp: m.CreatedAt,
	}
}

func newMessageEvent(m *domain.Message) MessageEvent {
	return MessageEvent{Type: EventMessage, MessagePayload: payloadFor(m)}
}

// systemEvent builds a broadcast-only system notice.
func systemEvent(roomID, text string) MessageEvent {
	return MessageEvent{
		Type: EventMessage,
		MessagePayload: MessagePayload{
			Room:      roomID,
			Sender:    "System",
			Text:      text,
			Kind:      string(domain.MessageText),
			Timestamp: time.Now().UTC(),
		},
	}
}

func NewErrorEvent(msg string) ErrorEvent {
	return ErrorEvent{Type: EventError, Error: msg}
}
