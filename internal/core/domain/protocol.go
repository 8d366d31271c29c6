package domain

import "time"

// Inbound frame kinds accepted on a room session.
const (
	FrameMessage     = "message"
	FrameStatus      = "status"
	FrameTyping      = "typing"
	FrameReadReceipt = "read_receipt"
)

// Outbound event kinds.
const (
	EventChatMessage   = "chat.message"
	EventUserStatus    = "user.status"
	EventTypingStatus  = "typing.status"
	EventMessageStatus = "message.status"
	EventError         = "error"
	EventNotification  = "notification"
	EventPong          = "pong"
)

// Chat-message subtypes carried in the message_type field.
const (
	MessageTypeMessage = "message"
	MessageTypeJoin    = "join"
	MessageTypeLeave   = "leave"
)

// WebSocket close codes. Distinct codes let the client disambiguate
// why a handshake was refused.
const (
	CloseNormal          = 1000
	CloseInternalError   = 4000
	CloseUnauthenticated = 4001
	CloseNotAMember      = 4002
	CloseRoomNotFound    = 4004
)

// Frame is a single inbound client frame on a room session.
type Frame struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	Status    string `json:"status,omitempty"`
	IsTyping  bool   `json:"is_typing,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// ChatMessageEvent is broadcast for new messages and for join/leave
// system messages (which carry no message_id and are not persisted).
type ChatMessageEvent struct {
	Type        string    `json:"type"` // "chat.message"
	MessageID   string    `json:"message_id,omitempty"`
	Message     string    `json:"message"`
	User        string    `json:"user"`
	MessageType string    `json:"message_type"`
	Status      string    `json:"status,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type UserStatusEvent struct {
	Type      string    `json:"type"` // "user.status"
	User      string    `json:"user"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type TypingStatusEvent struct {
	Type      string    `json:"type"` // "typing.status"
	User      string    `json:"user"`
	IsTyping  bool      `json:"is_typing"`
	Timestamp time.Time `json:"timestamp"`
}

type MessageStatusEvent struct {
	Type      string    `json:"type"` // "message.status"
	MessageID string    `json:"message_id"`
	Status    string    `json:"status"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent is sent to the offending connection only.
type ErrorEvent struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// NotificationEvent is delivered on the per-user notification channel,
// independent of which room the user is currently viewing.
type NotificationEvent struct {
	Type      string    `json:"type"`  // "notification"
	Event     string    `json:"event"` // e.g. "new_message"
	RoomID    string    `json:"room_id"`
	MessageID string    `json:"message_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type PongEvent struct {
	Type      string    `json:"type"` // "pong"
	Timestamp time.Time `json:"timestamp"`
}
