package domain

import (
	"time"

	"github.com/google/uuid"
)

type RoomType string

const (
	RoomDirect RoomType = "direct"
	RoomGroup  RoomType = "group"
)

// Room is a durable chat room owned by the storage collaborator.
type Room struct {
	ID        uuid.UUID
	Name      string
	Type      RoomType
	CreatedAt time.Time
}

// MessageStatus is the monotonic delivery lifecycle of a message.
// Valid order: sending < sent < delivered < seen. A status never
// moves backward; seen is terminal.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusSeen      MessageStatus = "seen"
)

var statusRank = map[MessageStatus]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusSeen:      3,
}

// Valid reports whether s is a known delivery status.
func (s MessageStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Precedes reports whether s comes strictly before target in the
// delivery order. It is the in-memory twin of the storage CAS.
func (s MessageStatus) Precedes(target MessageStatus) bool {
	return statusRank[s] < statusRank[target]
}

// Message is the durable chat entry referenced by the fan-out core.
type Message struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	SenderID  string
	Content   string
	Status    MessageStatus
	CreatedAt time.Time
	DeletedAt *time.Time
}

func NewMessage(roomID uuid.UUID, senderID, content string) *Message {
	return &Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		Status:    StatusSending,
		CreatedAt: time.Now(),
	}
}

// PresenceStatus is a user's ephemeral indicator in a room,
// independent of any durable account state.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
	PresenceAway    PresenceStatus = "away"
)

func (p PresenceStatus) Valid() bool {
	switch p {
	case PresenceOnline, PresenceOffline, PresenceAway:
		return true
	}
	return false
}
