package domain

import (
	"context"

	"github.com/google/uuid"
)

// RoomRepository exposes the durable room and membership records the
// fan-out core validates connections against.
type RoomRepository interface {
	GetRoomByID(ctx context.Context, roomID uuid.UUID) (*Room, error)
	IsMember(ctx context.Context, roomID uuid.UUID, userID string) (bool, error)
	// ListMembers returns every member's user id, used by the
	// notification fan-out to address recipients other than the sender.
	ListMembers(ctx context.Context, roomID uuid.UUID) ([]string, error)
}

// MessageRepository handles durable message records. The core owns the
// state-machine logic; the repository owns the compare-and-set that
// guards it at the storage boundary.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *Message) error
	// AdvanceStatus moves a message's status forward to target only if
	// the stored status strictly precedes it. Returns false with a nil
	// error when the request is stale (the CAS lost); ErrMessageNotFound
	// when no such message exists.
	AdvanceStatus(ctx context.Context, msgID uuid.UUID, target MessageStatus) (bool, error)
	// ListRecent returns the newest limit messages of a room,
	// oldest-first, excluding soft-deleted entries.
	ListRecent(ctx context.Context, roomID uuid.UUID, limit int) ([]Message, error)
}

// TokenVerifier maps an opaque credential to a verified user identity
// or rejects it.
type TokenVerifier interface {
	Verify(credential string) (string, error)
}
